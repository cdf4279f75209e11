package filter

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/antoniop-zartis/ap-cartrawler/internal/classify"
	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/internal/stats"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// PriceThresholds holds the median rental cost of each supplier class.
// A class with no offers has an infinite threshold.
type PriceThresholds struct {
	Corporate    float64
	NonCorporate float64
}

// For returns the threshold applying to o.
func (t PriceThresholds) For(o rental.Offer) float64 {
	if classify.Corporate(o) {
		return t.Corporate
	}
	return t.NonCorporate
}

// Thresholds computes the per-class medians of offers.
func Thresholds(offers []rental.Offer) (PriceThresholds, error) {
	corporate, others := partition(offers)

	corpMedian, err := partitionMedian(corporate)
	if err != nil {
		return PriceThresholds{}, fmt.Errorf("corporate median: %w", err)
	}
	otherMedian, err := partitionMedian(others)
	if err != nil {
		return PriceThresholds{}, fmt.Errorf("non-corporate median: %w", err)
	}
	return PriceThresholds{Corporate: corpMedian, NonCorporate: otherMedian}, nil
}

func partitionMedian(offers []rental.Offer) (float64, error) {
	if len(offers) == 0 {
		return math.Inf(1), nil
	}
	costs := make([]float64, len(offers))
	for i, o := range offers {
		costs[i] = o.RentalCost
	}
	return stats.Median(costs)
}

// FilterOverpriced removes full-to-full offers priced strictly above the
// median of their supplier class. Offers keep their input order; each
// removed offer is logged.
func FilterOverpriced(offers []rental.Offer) ([]rental.Offer, error) {
	thresholds, err := Thresholds(offers)
	if err != nil {
		return nil, err
	}
	return applyThresholds(offers, thresholds), nil
}

func applyThresholds(offers []rental.Offer, thresholds PriceThresholds) []rental.Offer {
	out := make([]rental.Offer, 0, len(offers))
	for _, o := range offers {
		limit := thresholds.For(o)
		if o.FuelPolicy == rental.FullToFull && o.RentalCost > limit {
			logger.Info("offer will be skipped",
				slog.String("offer", o.String()),
				slog.Float64("median", limit),
			)
			continue
		}
		out = append(out, o)
	}
	return out
}

// OverpricedModule is the pipeline stage wrapping FilterOverpriced. The
// thresholds of the last run are kept for diagnostics.
type OverpricedModule struct {
	last PriceThresholds
}

var _ Module = (*OverpricedModule)(nil)

// NewOverpriced creates an overpriced-offer stage.
func NewOverpriced() *OverpricedModule {
	return &OverpricedModule{}
}

// Process removes overpriced offers.
func (m *OverpricedModule) Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	thresholds, err := Thresholds(offers)
	if err != nil {
		return nil, err
	}
	m.last = thresholds

	logger.Debug("price thresholds computed",
		slog.String("module_type", "overpriced"),
		slog.Float64("corporate_median", thresholds.Corporate),
		slog.Float64("non_corporate_median", thresholds.NonCorporate),
	)
	return applyThresholds(offers, thresholds), nil
}

// LastThresholds returns the thresholds used by the most recent Process call.
func (m *OverpricedModule) LastThresholds() PriceThresholds {
	return m.last
}
