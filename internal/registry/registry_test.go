package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/input"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/output"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// resetRegistries clears the registries for the test and restores the
// built-ins afterwards.
func resetRegistries(t *testing.T) {
	t.Helper()
	ClearRegistries()
	t.Cleanup(func() {
		ClearRegistries()
		registerBuiltins()
	})
}

type nopFilter struct{}

func (nopFilter) Process(_ context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	return offers, nil
}

func TestRegisterInput(t *testing.T) {
	resetRegistries(t)

	called := false
	RegisterInput("testInput", func(rental.ModuleConfig) (input.Module, error) {
		called = true
		return input.NewSample(), nil
	})

	got := GetInputConstructor("testInput")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	if _, err := got(rental.ModuleConfig{}); err != nil {
		t.Fatalf("constructor error: %v", err)
	}
	if !called {
		t.Error("constructor was not called")
	}
}

func TestRegisterFilter(t *testing.T) {
	resetRegistries(t)

	var gotIndex int
	RegisterFilter("testFilter", func(_ rental.ModuleConfig, index int) (filter.Module, error) {
		gotIndex = index
		return nopFilter{}, nil
	})

	got := GetFilterConstructor("testFilter")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	if _, err := got(rental.ModuleConfig{}, 3); err != nil {
		t.Fatalf("constructor error: %v", err)
	}
	if gotIndex != 3 {
		t.Errorf("index = %d, want 3", gotIndex)
	}
}

func TestRegisterOutput(t *testing.T) {
	resetRegistries(t)

	wantErr := errors.New("boom")
	RegisterOutput("testOutput", func(rental.ModuleConfig) (output.Module, error) {
		return nil, wantErr
	})

	got := GetOutputConstructor("testOutput")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	if _, err := got(rental.ModuleConfig{}); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestGetUnregisteredConstructor(t *testing.T) {
	if GetInputConstructor("http") != nil {
		t.Error("expected nil for unregistered input type")
	}
	if GetFilterConstructor("mapping") != nil {
		t.Error("expected nil for unregistered filter type")
	}
	if GetOutputConstructor("kafka") != nil {
		t.Error("expected nil for unregistered output type")
	}
}

func TestOverwriteRegistration(t *testing.T) {
	resetRegistries(t)

	RegisterFilter("dup", func(rental.ModuleConfig, int) (filter.Module, error) {
		return nil, errors.New("first")
	})
	RegisterFilter("dup", func(rental.ModuleConfig, int) (filter.Module, error) {
		return nopFilter{}, nil
	})

	if _, err := GetFilterConstructor("dup")(rental.ModuleConfig{}, 0); err != nil {
		t.Errorf("expected the second constructor to win, got %v", err)
	}
	if diff := cmp.Diff([]string{"dup"}, ListFilterTypes()); diff != "" {
		t.Errorf("ListFilterTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestClearRegistries(t *testing.T) {
	resetRegistries(t)

	if len(ListInputTypes())+len(ListFilterTypes())+len(ListOutputTypes()) != 0 {
		t.Error("registries should be empty after ClearRegistries")
	}
}

func TestBuiltinTypes(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"input", ListInputTypes(), []string{"file", "sample", "sqlite"}},
		{"filter", ListFilterTypes(), []string{"condition", "script"}},
		{"output", ListOutputTypes(), []string{"console", "file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("registered types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuiltinConstructors(t *testing.T) {
	t.Run("condition", func(t *testing.T) {
		m, err := GetFilterConstructor("condition")(rental.ModuleConfig{
			Type:   "condition",
			Config: map[string]interface{}{"expression": "rentalCost < 100"},
		}, 0)
		if err != nil {
			t.Fatalf("condition constructor: %v", err)
		}
		if _, ok := m.(*filter.ConditionModule); !ok {
			t.Errorf("expected *filter.ConditionModule, got %T", m)
		}
	})

	t.Run("condition error mentions index", func(t *testing.T) {
		_, err := GetFilterConstructor("condition")(rental.ModuleConfig{Type: "condition", Config: map[string]interface{}{}}, 2)
		if err == nil {
			t.Fatal("expected an error for a missing expression")
		}
		if !strings.Contains(err.Error(), "index 2") {
			t.Errorf("error should mention the filter index, got %v", err)
		}
	})

	t.Run("sample", func(t *testing.T) {
		m, err := GetInputConstructor("sample")(rental.ModuleConfig{Type: "sample"})
		if err != nil {
			t.Fatalf("sample constructor: %v", err)
		}
		offers, err := m.Fetch(context.Background())
		if err != nil || len(offers) == 0 {
			t.Errorf("sample should return offers, got %d (err %v)", len(offers), err)
		}
	})

	t.Run("file output requires dir", func(t *testing.T) {
		if _, err := GetOutputConstructor("file")(rental.ModuleConfig{Type: "file", Config: map[string]interface{}{}}); err == nil {
			t.Error("expected an error without dir")
		}
	})
}
