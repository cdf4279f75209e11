package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

func offer(description, supplier, rateCode string, cost float64, policy rental.FuelPolicy) rental.Offer {
	return rental.Offer{
		Description:  description,
		SupplierName: supplier,
		RateCode:     rateCode,
		RentalCost:   cost,
		FuelPolicy:   policy,
	}
}

// captureLogs redirects the package logger to a JSON buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

// logEntries returns the decoded log lines whose msg equals msg.
func logEntries(t *testing.T, buf *bytes.Buffer, msg string) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["msg"] == msg {
			entries = append(entries, entry)
		}
	}
	return entries
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestModulesRespectCancellation(t *testing.T) {
	cond, err := NewConditionFromConfig(ConditionConfig{Expression: "true"})
	if err != nil {
		t.Fatalf("condition: %v", err)
	}
	script, err := NewScriptFromConfig(ScriptConfig{Script: "function keep(o) { return true; }"})
	if err != nil {
		t.Fatalf("script: %v", err)
	}

	modules := map[string]Module{
		"dedupe":     NewDedupe(),
		"arrange":    NewArrange(),
		"overpriced": NewOverpriced(),
		"condition":  cond,
		"script":     script,
	}
	offers := []rental.Offer{offer("A", "SIXT", "MDMR", 10, rental.FullToFull)}

	for name, m := range modules {
		t.Run(name, func(t *testing.T) {
			out, err := m.Process(canceledContext(), offers)
			if err != context.Canceled {
				t.Errorf("error = %v, want context.Canceled", err)
			}
			if out != nil {
				t.Errorf("expected nil output, got %v", out)
			}
		})
	}
}

func TestNewOfferView(t *testing.T) {
	v := NewOfferView(offer("Fiat 500", "hertz", "mbmr", 55, rental.FullToEmpty))
	if v.Category != "MINI" || !v.Corporate || v.FuelPolicy != "FULL_TO_EMPTY" {
		t.Errorf("unexpected view: %+v", v)
	}
	if m := v.asMap(); m["rentalCost"] != 55.0 || m["supplierName"] != "hertz" {
		t.Errorf("unexpected map: %v", m)
	}
}
