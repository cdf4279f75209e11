package input

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

//go:embed sample-offers.json
var sampleOffers []byte

// SampleModule returns a fixed demonstration data set of airport offers. It
// contains duplicates, corporate and independent suppliers, and every
// vehicle category.
type SampleModule struct{}

var _ Module = (*SampleModule)(nil)

// NewSample creates a sample input module.
func NewSample() *SampleModule {
	return &SampleModule{}
}

// SampleOffers decodes the embedded data set.
func SampleOffers() ([]rental.Offer, error) {
	var offers []rental.Offer
	if err := json.Unmarshal(sampleOffers, &offers); err != nil {
		return nil, fmt.Errorf("decoding sample offers: %w", err)
	}
	return offers, nil
}

// Fetch returns a fresh copy of the sample offers.
func (m *SampleModule) Fetch(ctx context.Context) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	offers, err := SampleOffers()
	if err != nil {
		return nil, err
	}
	logger.Info("sample offers loaded",
		slog.String("module_type", "sample"),
		slog.Int("record_count", len(offers)),
	)
	return offers, nil
}

// Close releases resources (none).
func (m *SampleModule) Close() error {
	return nil
}
