package filter

import (
	"cmp"
	"context"
	"slices"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/antoniop-zartis/ap-cartrawler/internal/classify"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

func mixedOffers() []rental.Offer {
	return []rental.Offer{
		offer("Ford Focus", "NIZA", "CDMR", 90, rental.FullToFull),
		offer("Fiat 500", "SIXT", "MBMR", 50, rental.FullToEmpty),
		offer("Opel Corsa", "HERTZ", "EDMR", 70, rental.FullToFull),
		offer("Kia Picanto", "GOLDCAR", "MCMR", 40, rental.FullToFull),
		offer("VW Golf", "AVIS", "CDMR", 110, rental.FullToFull),
		offer("Fiat Panda", "avis", "MDMR", 45, rental.FullToFull),
		offer("Van", "SIXT", "FVMR", 200, rental.FullToEmpty),
		offer("Seat Ibiza", "RECORD", "EDMR", 60, rental.FullToEmpty),
		offer("Toyota Aygo", "SIXT", "MDMR", 45, rental.FullToFull),
		offer("Mystery", "", "", 10, rental.FullToEmpty),
	}
}

func TestArrange(t *testing.T) {
	in := mixedOffers()
	got := Arrange(in)

	want := []rental.Offer{
		in[5], // avis MDMR 45
		in[8], // SIXT MDMR 45, ties keep input order
		in[1], // SIXT MBMR 50
		in[2], // HERTZ EDMR 70
		in[4], // AVIS CDMR 110
		in[6], // SIXT FVMR 200
		in[3], // GOLDCAR MCMR 40
		in[7], // RECORD EDMR 60
		in[0], // NIZA CDMR 90
		in[9], // blank rate code
	}
	if diff := gocmp.Diff(want, got); diff != "" {
		t.Errorf("Arrange() mismatch (-want +got):\n%s", diff)
	}
}

func TestArrangeProperties(t *testing.T) {
	in := DedupeOffers(mixedOffers())
	original := slices.Clone(in)
	got := Arrange(in)

	t.Run("permutation", func(t *testing.T) {
		byKey := func(a, b rental.Offer) int { return cmp.Compare(a.String(), b.String()) }
		sortedIn := slices.Clone(in)
		sortedOut := slices.Clone(got)
		slices.SortFunc(sortedIn, byKey)
		slices.SortFunc(sortedOut, byKey)
		if diff := gocmp.Diff(sortedIn, sortedOut); diff != "" {
			t.Errorf("Arrange() is not a permutation of its input:\n%s", diff)
		}
	})

	t.Run("corporate first", func(t *testing.T) {
		seenNonCorporate := false
		for _, o := range got {
			if !classify.Corporate(o) {
				seenNonCorporate = true
			} else if seenNonCorporate {
				t.Fatalf("corporate offer %v after a non-corporate one", o)
			}
		}
	})

	t.Run("category then cost", func(t *testing.T) {
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if classify.Corporate(prev) != classify.Corporate(cur) {
				continue
			}
			pr, cr := classify.Category(prev).Rank(), classify.Category(cur).Rank()
			if pr > cr {
				t.Errorf("category rank decreases at %d: %v then %v", i, prev, cur)
			}
			if pr == cr && prev.RentalCost > cur.RentalCost {
				t.Errorf("cost decreases at %d: %v then %v", i, prev, cur)
			}
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		if diff := gocmp.Diff(original, in); diff != "" {
			t.Errorf("input was modified:\n%s", diff)
		}
	})
}

func TestArrangeEmpty(t *testing.T) {
	if got := Arrange(nil); len(got) != 0 {
		t.Errorf("Arrange(nil) = %v, want empty", got)
	}
}

func TestArrangeModule(t *testing.T) {
	got, err := NewArrange().Process(context.Background(), mixedOffers())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if diff := gocmp.Diff(Arrange(mixedOffers()), got); diff != "" {
		t.Errorf("module and function disagree:\n%s", diff)
	}
}
