package errhandling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/antoniop-zartis/ap-cartrawler/internal/stats"
)

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryConfig, "config"},
		{CategoryInput, "input"},
		{CategoryFilter, "filter"},
		{CategoryStatistics, "statistics"},
		{CategoryOutput, "output"},
		{CategoryCanceled, "canceled"},
		{CategoryUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.category) != tt.expected {
				t.Errorf("ErrorCategory = %v, want %v", tt.category, tt.expected)
			}
		})
	}
}

func TestClassifiedError(t *testing.T) {
	t.Run("Error message formatting", func(t *testing.T) {
		err := NewInputError("reading offers.json", errors.New("unexpected EOF"))
		msg := err.Error()
		if !strings.Contains(msg, "input") || !strings.Contains(msg, "reading offers.json") || !strings.Contains(msg, "unexpected EOF") {
			t.Errorf("Error() = %q", msg)
		}
	})

	t.Run("Unwrap returns original error", func(t *testing.T) {
		original := errors.New("original")
		err := NewOutputError("writing", original)
		if !errors.Is(err, original) {
			t.Error("errors.Is should reach the original error")
		}
	})

	t.Run("message equal to cause is not repeated", func(t *testing.T) {
		original := errors.New("same")
		err := newClassified(CategoryUnknown, "same", original)
		if got := err.Error(); got != "unknown error: same" {
			t.Errorf("Error() = %q", got)
		}
	})
}

func TestClassifyError(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here.json")

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, CategoryUnknown},
		{"empty median", fmt.Errorf("corporate median: %w", stats.ErrEmptyInput), CategoryStatistics},
		{"canceled", context.Canceled, CategoryCanceled},
		{"deadline", fmt.Errorf("stage: %w", context.DeadlineExceeded), CategoryCanceled},
		{"missing file", statErr, CategoryInput},
		{"already classified", fmt.Errorf("wrapped: %w", NewConfigError("bad", nil)), CategoryConfig},
		{"plain", errors.New("something"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err).Category; got != tt.want {
				t.Errorf("ClassifyError() category = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(NewFilterError("bad expression", nil)) {
		t.Error("filter errors are user errors")
	}
	if IsUserError(NewOutputError("disk full", nil)) {
		t.Error("output errors are not user errors")
	}
	if IsUserError(nil) {
		t.Error("nil is not a user error")
	}
}
