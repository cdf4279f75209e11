// Package errhandling provides error categories and classification for the
// offer pipeline. Pipeline runs are deterministic, so nothing is retried:
// the category only decides how a failure is reported.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/antoniop-zartis/ap-cartrawler/internal/stats"
)

// ErrorCategory is the classification of a pipeline error.
type ErrorCategory string

// Error categories.
const (
	// CategoryConfig covers invalid pipeline or module configuration.
	CategoryConfig ErrorCategory = "config"

	// CategoryInput covers failures loading offers (missing file, bad rows).
	CategoryInput ErrorCategory = "input"

	// CategoryFilter covers selection filter failures (expression or script errors).
	CategoryFilter ErrorCategory = "filter"

	// CategoryStatistics covers invalid statistics input, such as the
	// median of an empty sequence.
	CategoryStatistics ErrorCategory = "statistics"

	// CategoryOutput covers failures publishing ranked lists.
	CategoryOutput ErrorCategory = "output"

	// CategoryCanceled covers runs stopped through their context.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown covers everything else.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with its category.
type ClassifiedError struct {
	// Category is the error classification.
	Category ErrorCategory

	// Message is a human-readable summary.
	Message string

	// OriginalErr is the underlying error.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.OriginalErr != nil && e.Message != e.OriginalErr.Error() {
		return fmt.Sprintf("%s error: %s: %v", e.Category, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

func newClassified(category ErrorCategory, message string, err error) *ClassifiedError {
	return &ClassifiedError{Category: category, Message: message, OriginalErr: err}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, err error) *ClassifiedError {
	return newClassified(CategoryConfig, message, err)
}

// NewInputError creates an input error.
func NewInputError(message string, err error) *ClassifiedError {
	return newClassified(CategoryInput, message, err)
}

// NewFilterError creates a selection filter error.
func NewFilterError(message string, err error) *ClassifiedError {
	return newClassified(CategoryFilter, message, err)
}

// NewOutputError creates an output error.
func NewOutputError(message string, err error) *ClassifiedError {
	return newClassified(CategoryOutput, message, err)
}

// ClassifyError classifies any error. Already classified errors are
// returned as-is; well-known sentinels are mapped to their category.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Message: "nil error"}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, stats.ErrEmptyInput):
		return newClassified(CategoryStatistics, err.Error(), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newClassified(CategoryCanceled, err.Error(), err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return newClassified(CategoryInput, err.Error(), err)
	}

	return newClassified(CategoryUnknown, err.Error(), err)
}

// GetErrorCategory returns the category of err, CategoryUnknown for nil.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsUserError reports whether the failure is caused by the configuration or
// data supplied to the run rather than by the runtime.
func IsUserError(err error) bool {
	switch GetErrorCategory(err) {
	case CategoryConfig, CategoryInput, CategoryFilter, CategoryStatistics:
		return true
	default:
		return false
	}
}
