// Package input provides the offer pipeline's input modules.
// Input modules load the raw, unordered offer collection; duplicates are
// allowed and left to the pipeline.
package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Module represents an input module that loads offers from a source.
type Module interface {
	// Fetch loads the offers. The context can be used to cancel long-running reads.
	Fetch(ctx context.Context) ([]rental.Offer, error)
	// Close releases any resources held by the module.
	Close() error
}

// Common errors for input modules
var (
	// ErrInvalidOffer is returned when a loaded offer breaks the offer invariants
	ErrInvalidOffer = errors.New("invalid offer")
	// ErrMissingPath is returned when a module requiring a path has none
	ErrMissingPath = errors.New("path is required")
)

// ValidateOffers checks the invariants every loaded offer must satisfy: a
// known fuel policy and a finite, non-negative rental cost.
func ValidateOffers(offers []rental.Offer) error {
	for i, o := range offers {
		if o.FuelPolicy != rental.FullToFull && o.FuelPolicy != rental.FullToEmpty {
			return fmt.Errorf("%w at index %d: missing or unknown fuel policy", ErrInvalidOffer, i)
		}
		if o.RentalCost < 0 || math.IsNaN(o.RentalCost) || math.IsInf(o.RentalCost, 0) {
			return fmt.Errorf("%w at index %d: rental cost %v must be a non-negative number", ErrInvalidOffer, i, o.RentalCost)
		}
	}
	return nil
}

// recordFields maps accepted column or key spellings to offer fields.
var recordFields = map[string]string{
	"description":   "description",
	"supplier_name": "supplierName",
	"suppliername":  "supplierName",
	"supplier":      "supplierName",
	"rate_code":     "rateCode",
	"ratecode":      "rateCode",
	"sipp":          "rateCode",
	"rental_cost":   "rentalCost",
	"rentalcost":    "rentalCost",
	"cost":          "rentalCost",
	"fuel_policy":   "fuelPolicy",
	"fuelpolicy":    "fuelPolicy",
}

// offerFromRecord converts a generic record (a database row or a decoded
// document) into an offer. Keys are matched case-insensitively and both
// snake_case and camelCase spellings are accepted.
func offerFromRecord(record map[string]interface{}) (rental.Offer, error) {
	var o rental.Offer
	for key, value := range record {
		field, ok := recordFields[strings.ToLower(key)]
		if !ok || value == nil {
			continue
		}
		switch field {
		case "description":
			o.Description = toString(value)
		case "supplierName":
			o.SupplierName = toString(value)
		case "rateCode":
			o.RateCode = toString(value)
		case "rentalCost":
			cost, err := toFloat(value)
			if err != nil {
				return rental.Offer{}, fmt.Errorf("field %q: %w", key, err)
			}
			o.RentalCost = cost
		case "fuelPolicy":
			policy, err := rental.ParseFuelPolicy(toString(value))
			if err != nil {
				return rental.Offer{}, fmt.Errorf("field %q: %w", key, err)
			}
			o.FuelPolicy = policy
		}
	}
	return o, nil
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric value %v (%T)", v, v)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
