package filter

import (
	"context"
	"log/slog"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Dedupe returns one item per distinct key, keeping the first occurrence of
// each key and the order in which keys were first seen. items is not
// modified.
func Dedupe[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// DedupeOffers removes offers sharing supplier, description, rate code and
// fuel policy. The first offer wins, so a later cheaper duplicate is dropped.
func DedupeOffers(offers []rental.Offer) []rental.Offer {
	return Dedupe(offers, rental.Offer.Key)
}

// DedupeModule is the pipeline stage wrapping DedupeOffers.
type DedupeModule struct{}

var _ Module = (*DedupeModule)(nil)

// NewDedupe creates a dedupe stage.
func NewDedupe() *DedupeModule {
	return &DedupeModule{}
}

// Process removes duplicate offers.
func (m *DedupeModule) Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	out := DedupeOffers(offers)
	if dropped := len(offers) - len(out); dropped > 0 {
		logger.Debug("duplicate offers dropped",
			slog.String("module_type", "dedupe"),
			slog.Int("input_records", len(offers)),
			slog.Int("duplicates", dropped),
		)
	}
	return out, nil
}
