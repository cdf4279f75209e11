package runtime

import (
	"context"
	"fmt"

	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Result is the outcome of ranking one offer collection.
type Result struct {
	// Arranged is the de-duplicated list in display order
	Arranged []rental.Offer
	// Filtered is Arranged without overpriced offers, in the same order
	Filtered []rental.Offer

	InputCount    int
	ArrangedCount int
	FilteredCount int

	// Thresholds holds the per-class medians used by the price filter
	Thresholds filter.PriceThresholds
}

// Duplicates returns the number of offers dropped as duplicates.
func (r *Result) Duplicates() int {
	return r.InputCount - r.ArrangedCount
}

// Removed returns the number of offers dropped as overpriced.
func (r *Result) Removed() int {
	return r.ArrangedCount - r.FilteredCount
}

// Process ranks offers: duplicates are removed, the rest arranged by
// supplier class, category and cost, and the arranged list is then
// filtered for overpriced offers. offers is not modified.
func Process(ctx context.Context, offers []rental.Offer) (*Result, error) {
	deduped, err := filter.NewDedupe().Process(ctx, offers)
	if err != nil {
		return nil, err
	}

	arranged, err := filter.NewArrange().Process(ctx, deduped)
	if err != nil {
		return nil, err
	}

	overpriced := filter.NewOverpriced()
	filtered, err := overpriced.Process(ctx, arranged)
	if err != nil {
		return nil, fmt.Errorf("filtering overpriced offers: %w", err)
	}

	return &Result{
		Arranged:      arranged,
		Filtered:      filtered,
		InputCount:    len(offers),
		ArrangedCount: len(arranged),
		FilteredCount: len(filtered),
		Thresholds:    overpriced.LastThresholds(),
	}, nil
}
