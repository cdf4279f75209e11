package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/antoniop-zartis/ap-cartrawler/internal/config"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

func TestFormatErrorLocation(t *testing.T) {
	tests := []struct {
		path         string
		line, column int
		want         string
	}{
		{"", 3, 4, ""},
		{"p.yaml", 0, 0, "p.yaml"},
		{"p.yaml", 3, 0, "p.yaml:3"},
		{"p.json", 3, 7, "p.json:3:7"},
	}
	for _, tt := range tests {
		if got := formatErrorLocation(tt.path, tt.line, tt.column); got != tt.want {
			t.Errorf("formatErrorLocation(%q, %d, %d) = %q, want %q", tt.path, tt.line, tt.column, got, tt.want)
		}
	}
}

func TestPrintConfigErrors(t *testing.T) {
	result := &config.Result{
		ParseErrors:      []config.ParseError{{Path: "p.json", Line: 6, Column: 3, Message: "unexpected '}'", Type: config.ErrorTypeSyntax}},
		ValidationErrors: []config.ValidationError{
			{Path: "/pipeline/input/type", Type: "enum", Message: "value must be one of 'file', 'sqlite', 'sample'"},
			{Message: strings.Repeat("x", 150)},
		},
	}

	var buf bytes.Buffer
	PrintConfigErrors(&buf, result, OutputOptions{})
	out := buf.String()

	for _, want := range []string{"Parse errors:", "p.json:6:3: unexpected '}'", "Validation errors:", "/pipeline/input/type: value must be one of", "  /: xxx", "...", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Keyword:") {
		t.Error("compact output should not print keywords")
	}
}

func TestPrintValidationErrors_Verbose(t *testing.T) {
	var buf bytes.Buffer
	PrintValidationErrors(&buf, []config.ValidationError{{Path: "/pipeline", Type: "required", Message: "missing property 'input'"}}, true, false)

	out := buf.String()
	if !strings.Contains(out, "Keyword: required") || !strings.Contains(out, "Message: missing property 'input'") {
		t.Errorf("unexpected verbose output:\n%s", out)
	}
	if strings.Contains(out, "Hint:") {
		t.Error("hint should not be printed in verbose mode")
	}
}

func TestPrintExecutionResult_Success(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	result := &rental.ExecutionResult{
		RunID:           "run-1",
		Status:          "success",
		StartedAt:       start,
		CompletedAt:     start.Add(40 * time.Millisecond),
		InputCount:      26,
		SelectedCount:   26,
		ArrangedCount:   22,
		FilteredCount:   15,
		OffersPublished: 37,
	}

	var out, errW bytes.Buffer
	PrintExecutionResult(&out, &errW, result, nil, OutputOptions{Verbose: true})

	for _, want := range []string{"Pipeline executed successfully", "Offers loaded: 26", "Arranged: 22 (4 duplicate(s) removed)", "Filtered: 15 (7 overpriced offer(s) removed)", "Offers published: 37", "Run ID: run-1", "Duration: 40ms"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "Offers selected") {
		t.Error("selected count should be omitted when no offer was filtered out")
	}
	if errW.Len() != 0 {
		t.Errorf("nothing should be written to stderr, got %q", errW.String())
	}
}

func TestPrintExecutionResult_DryRunAndQuiet(t *testing.T) {
	result := &rental.ExecutionResult{InputCount: 3, SelectedCount: 2, ArrangedCount: 2, FilteredCount: 2}

	var out, errW bytes.Buffer
	PrintExecutionResult(&out, &errW, result, nil, OutputOptions{DryRun: true})
	if !strings.Contains(out.String(), "Dry run") || !strings.Contains(out.String(), "Offers selected: 2") {
		t.Errorf("unexpected dry-run output:\n%s", out.String())
	}

	out.Reset()
	PrintExecutionResult(&out, &errW, result, nil, OutputOptions{Quiet: true})
	if out.Len() != 0 {
		t.Errorf("quiet mode should print nothing, got %q", out.String())
	}
}

func TestPrintExecutionResult_Failure(t *testing.T) {
	result := &rental.ExecutionResult{
		Status: "error",
		Error: &rental.ExecutionError{
			Code:     "INPUT_FAILED",
			Module:   "input",
			Category: "input",
			Message:  "input error: loading offers: open offers.json: no such file or directory",
		},
	}

	var out, errW bytes.Buffer
	PrintExecutionResult(&out, &errW, result, errors.New("executing input module"), OutputOptions{Quiet: true})

	for _, want := range []string{"Pipeline execution failed", "Module: input", "Code: INPUT_FAILED", "Category: input", "no such file"} {
		if !strings.Contains(errW.String(), want) {
			t.Errorf("stderr missing %q:\n%s", want, errW.String())
		}
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be written to stdout on failure, got %q", out.String())
	}
}

func TestPrintConfigSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintConfigSummary(&buf, &rental.Pipeline{
		Name:    "Weekend Dublin",
		Version: "1.0.0",
		Input:   &rental.ModuleConfig{Type: "file"},
		Filters: []rental.ModuleConfig{{Type: "condition"}, {Type: "script"}},
		Outputs: []rental.ModuleConfig{{Type: "console"}},
	})

	want := "  Pipeline: Weekend Dublin\n  Version: 1.0.0\n  Input: file\n  Filters: condition, script\n  Outputs: console\n"
	if buf.String() != want {
		t.Errorf("PrintConfigSummary() = %q, want %q", buf.String(), want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo wörld", 8); got != "héllo..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short", 8); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}
