// Package output provides the offer pipeline's output modules.
// Output modules publish the ranked lists. Each run publishes two stages in
// order: the arranged list and the filtered list.
package output

import (
	"context"

	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Module represents an output module that publishes offers.
type Module interface {
	// Send publishes the offers of one stage ("arranged" or "filtered").
	// Returns the number of offers published and any error.
	Send(ctx context.Context, stage string, offers []rental.Offer) (int, error)

	// Close releases any resources held by the module.
	Close() error
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
