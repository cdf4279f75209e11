package filter

import (
	"cmp"
	"context"
	"slices"

	"github.com/antoniop-zartis/ap-cartrawler/internal/classify"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Arrange orders offers for display: corporate suppliers first, then the
// rest; inside each group offers are grouped by category (Mini, Economy,
// Compact, Other) and sorted by ascending rental cost. Ties keep their
// input order. The result is a permutation of offers.
func Arrange(offers []rental.Offer) []rental.Offer {
	corporate, others := partition(offers)
	out := make([]rental.Offer, 0, len(offers))
	out = append(out, arrangePartition(corporate)...)
	out = append(out, arrangePartition(others)...)
	return out
}

// partition splits offers by supplier class, preserving relative order.
func partition(offers []rental.Offer) (corporate, others []rental.Offer) {
	for _, o := range offers {
		if classify.Corporate(o) {
			corporate = append(corporate, o)
		} else {
			others = append(others, o)
		}
	}
	return corporate, others
}

func arrangePartition(offers []rental.Offer) []rental.Offer {
	byCategory := make(map[rental.Category][]rental.Offer)
	for _, o := range offers {
		c := classify.Category(o)
		byCategory[c] = append(byCategory[c], o)
	}

	out := make([]rental.Offer, 0, len(offers))
	for _, c := range rental.Categories() {
		group := byCategory[c]
		slices.SortStableFunc(group, func(a, b rental.Offer) int {
			return cmp.Compare(a.RentalCost, b.RentalCost)
		})
		out = append(out, group...)
	}
	return out
}

// ArrangeModule is the pipeline stage wrapping Arrange.
type ArrangeModule struct{}

var _ Module = (*ArrangeModule)(nil)

// NewArrange creates an arrange stage.
func NewArrange() *ArrangeModule {
	return &ArrangeModule{}
}

// Process returns the arranged offers.
func (m *ArrangeModule) Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return Arrange(offers), nil
}
