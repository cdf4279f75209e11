// Package classify derives the supplier class and vehicle category of an
// offer. Both classifiers are total: unknown input maps to a fallback value
// instead of an error.
package classify

import (
	"slices"
	"strings"

	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// corporateSuppliers is the fixed allow-list of corporate suppliers, keyed by
// upper-case name. It is never modified after package initialisation.
var corporateSuppliers = map[string]struct{}{
	"AVIS":       {},
	"BUDGET":     {},
	"ENTERPRISE": {},
	"FIREFLY":    {},
	"HERTZ":      {},
	"SIXT":       {},
	"THRIFTY":    {},
}

// categoryByPrefix maps an upper-case rate-code letter to its category.
var categoryByPrefix = buildPrefixTable()

func buildPrefixTable() map[byte]rental.Category {
	table := make(map[byte]rental.Category, len(rental.Categories()))
	for _, c := range rental.Categories() {
		if p, ok := c.Prefix(); ok {
			if _, exists := table[p]; !exists {
				table[p] = c
			}
		}
	}
	return table
}

// IsCorporate reports whether supplierName belongs to the corporate
// allow-list. Matching is case-insensitive; empty and unknown names are
// non-corporate.
func IsCorporate(supplierName string) bool {
	if supplierName == "" {
		return false
	}
	_, ok := corporateSuppliers[strings.ToUpper(supplierName)]
	return ok
}

// CorporateSuppliers returns the allow-list in alphabetical order.
func CorporateSuppliers() []string {
	names := make([]string, 0, len(corporateSuppliers))
	for name := range corporateSuppliers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CategoryOf maps a rate code to its vehicle category using the first
// character, case-insensitively. Blank codes and unknown letters map to
// rental.Other.
func CategoryOf(rateCode string) rental.Category {
	if strings.TrimSpace(rateCode) == "" {
		return rental.Other
	}
	first := rateCode[0]
	if 'a' <= first && first <= 'z' {
		first -= 'a' - 'A'
	}
	if c, ok := categoryByPrefix[first]; ok {
		return c
	}
	return rental.Other
}

// Category returns the category of an offer.
func Category(o rental.Offer) rental.Category {
	return CategoryOf(o.RateCode)
}

// Corporate reports whether an offer comes from a corporate supplier.
func Corporate(o rental.Offer) bool {
	return IsCorporate(o.SupplierName)
}
