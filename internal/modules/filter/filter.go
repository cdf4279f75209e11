// Package filter provides the offer pipeline's filter modules.
//
// Two kinds of modules live here. Selection modules (condition, script) keep
// or drop offers according to user configuration and run before ranking.
// Ranking modules (dedupe, arrange, overpriced) implement the fixed offer
// ordering: duplicate removal, supplier/category grouping and the median
// price filter.
package filter

import (
	"context"

	"github.com/antoniop-zartis/ap-cartrawler/internal/classify"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Module is a pipeline stage that receives offers and returns a new slice.
// Implementations never modify the input slice.
type Module interface {
	Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error)
}

// Error handling modes shared by the selection modules.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
	OnErrorLog  = "log"
)

// checkContext returns the context error if ctx is already done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// OfferView is the flattened offer exposed to expressions and scripts.
// Category and Corporate are derived so that selections can use them
// without re-implementing the classification rules.
type OfferView struct {
	Description  string  `expr:"description" json:"description"`
	SupplierName string  `expr:"supplierName" json:"supplierName"`
	RateCode     string  `expr:"rateCode" json:"rateCode"`
	RentalCost   float64 `expr:"rentalCost" json:"rentalCost"`
	FuelPolicy   string  `expr:"fuelPolicy" json:"fuelPolicy"`
	Category     string  `expr:"category" json:"category"`
	Corporate    bool    `expr:"corporate" json:"corporate"`
}

// NewOfferView builds the view of o.
func NewOfferView(o rental.Offer) OfferView {
	return OfferView{
		Description:  o.Description,
		SupplierName: o.SupplierName,
		RateCode:     o.RateCode,
		RentalCost:   o.RentalCost,
		FuelPolicy:   o.FuelPolicy.String(),
		Category:     classify.Category(o).String(),
		Corporate:    classify.Corporate(o),
	}
}

// asMap returns the view as a plain map, the shape handed to JavaScript.
func (v OfferView) asMap() map[string]interface{} {
	return map[string]interface{}{
		"description":  v.Description,
		"supplierName": v.SupplierName,
		"rateCode":     v.RateCode,
		"rentalCost":   v.RentalCost,
		"fuelPolicy":   v.FuelPolicy,
		"category":     v.Category,
		"corporate":    v.Corporate,
	}
}
