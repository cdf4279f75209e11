// Package config parses and validates pipeline configuration files
// (JSON or YAML) and converts them into rental.Pipeline values.
package config

import (
	"fmt"
	"strings"
)

// Supported configuration formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseError represents a parsing error with location information.
type ParseError struct {
	// Path is the file path where the error occurred
	Path string
	// Line is the line number (1-based, 0 if unknown)
	Line int
	// Column is the column number (1-based, 0 if unknown)
	Column int
	// Message is the error message
	Message string
	// Type categorizes the error (syntax, io, format)
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	// Path is the JSON pointer of the offending value (e.g. "/pipeline/input/type")
	Path string
	// Type is the failed keyword class (required, enum, type, ...)
	Type string
	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result contains the combined result of parsing and validation.
type Result struct {
	// Data contains the parsed configuration with JSON value types
	Data map[string]interface{}
	// ParseErrors contains parsing errors
	ParseErrors []ParseError
	// ValidationErrors contains schema validation errors
	ValidationErrors []ValidationError
	// FilePath is the path to the configuration file (empty for strings)
	FilePath string
	// Format is the detected format (json, yaml)
	Format string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parsing and validation errors as a single slice.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
