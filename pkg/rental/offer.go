// Package rental provides the public types shared by the offer pipeline:
// the Offer value, its derived Category, and the pipeline configuration
// and execution result types.
package rental

import (
	"fmt"
	"strconv"
	"strings"
)

// FuelPolicy is the refuelling rule attached to an offer.
type FuelPolicy int

// Supported fuel policies. The zero value is not a valid policy.
const (
	FullToFull FuelPolicy = iota + 1
	FullToEmpty
)

// String returns the canonical spelling of the policy.
func (p FuelPolicy) String() string {
	switch p {
	case FullToFull:
		return "FULL_TO_FULL"
	case FullToEmpty:
		return "FULL_TO_EMPTY"
	default:
		return "UNKNOWN"
	}
}

// ParseFuelPolicy parses a fuel policy name. Both the canonical spelling
// (FULL_TO_FULL) and the compact one used by supplier feeds (FULLFULL) are
// accepted, case-insensitively.
func ParseFuelPolicy(s string) (FuelPolicy, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)
	switch normalized {
	case "FULLTOFULL", "FULLFULL":
		return FullToFull, nil
	case "FULLTOEMPTY", "FULLEMPTY":
		return FullToEmpty, nil
	default:
		return 0, fmt.Errorf("unknown fuel policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p FuelPolicy) MarshalText() ([]byte, error) {
	if p != FullToFull && p != FullToEmpty {
		return nil, fmt.Errorf("invalid fuel policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *FuelPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseFuelPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Offer is a single car-rental quote. Offers are values: pipeline stages
// copy and reorder them but never modify one.
type Offer struct {
	Description  string     `json:"description" yaml:"description"`
	SupplierName string     `json:"supplierName" yaml:"supplierName"`
	RateCode     string     `json:"rateCode" yaml:"rateCode"`
	RentalCost   float64    `json:"rentalCost" yaml:"rentalCost"`
	FuelPolicy   FuelPolicy `json:"fuelPolicy" yaml:"fuelPolicy"`
}

// Key is the composite identity used for de-duplication. Rental cost is
// deliberately not part of it.
type Key struct {
	SupplierName string
	Description  string
	RateCode     string
	FuelPolicy   FuelPolicy
}

// Key returns the offer's composite identity.
func (o Offer) Key() Key {
	return Key{
		SupplierName: o.SupplierName,
		Description:  o.Description,
		RateCode:     o.RateCode,
		FuelPolicy:   o.FuelPolicy,
	}
}

// String renders the offer in the display format
// "SUPPLIER : description : CODE : cost : POLICY".
func (o Offer) String() string {
	return strings.Join([]string{
		o.SupplierName,
		o.Description,
		o.RateCode,
		strconv.FormatFloat(o.RentalCost, 'f', -1, 64),
		o.FuelPolicy.String(),
	}, " : ")
}

// Category is the vehicle class derived from the first letter of a rate
// code. Categories are ordered by Rank, which defines display priority.
type Category int

// Categories in display order.
const (
	Mini Category = iota
	Economy
	Compact
	Other
)

var categoryLabels = [...]string{
	Mini:    "Mini",
	Economy: "Economy",
	Compact: "Compact",
	Other:   "Other",
}

// prefix 0 means the category is the fallback and has no rate-code letter.
var categoryPrefixes = [...]byte{
	Mini:    'M',
	Economy: 'E',
	Compact: 'C',
	Other:   0,
}

// Categories returns every category in rank order.
func Categories() []Category {
	return []Category{Mini, Economy, Compact, Other}
}

// Rank returns the sort ordinal of the category.
func (c Category) Rank() int {
	return int(c)
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	if c < Mini || c > Other {
		return categoryLabels[Other]
	}
	return categoryLabels[c]
}

// Prefix returns the rate-code letter for the category and false for the
// fallback category.
func (c Category) Prefix() (byte, bool) {
	if c < Mini || c > Other {
		return 0, false
	}
	p := categoryPrefixes[c]
	return p, p != 0
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return strings.ToUpper(c.Label())
}
