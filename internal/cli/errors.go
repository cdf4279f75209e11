// Package cli formats command output: configuration errors, pipeline
// summaries and execution results.
package cli

import (
	"fmt"
	"io"

	"github.com/antoniop-zartis/ap-cartrawler/internal/config"
)

// maxCompactMessage is the longest validation message printed without --verbose.
const maxCompactMessage = 100

// PrintConfigErrors prints every parse and validation error of result.
func PrintConfigErrors(w io.Writer, result *config.Result, opts OutputOptions) {
	if len(result.ParseErrors) > 0 {
		PrintParseErrors(w, result.ParseErrors, opts.Verbose)
	}
	if len(result.ValidationErrors) > 0 {
		PrintValidationErrors(w, result.ValidationErrors, opts.Verbose, opts.Quiet)
	}
}

// PrintParseErrors prints parse errors with their file location.
func PrintParseErrors(w io.Writer, errs []config.ParseError, verbose bool) {
	fmt.Fprintln(w, failure("Parse errors:"))
	for _, err := range errs {
		location := formatErrorLocation(err.Path, err.Line, err.Column)
		if location != "" {
			fmt.Fprintf(w, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(w, "  %s\n", err.Message)
		}
		if verbose && err.Type != "" {
			fmt.Fprintf(w, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation formats path:line:column, omitting unknown parts.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints schema validation errors.
func PrintValidationErrors(w io.Writer, errs []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(w, failure("Validation errors:"))
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if verbose {
			fmt.Fprintf(w, "  %s:\n", path)
			fmt.Fprintf(w, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(w, "    Keyword: %s\n", err.Type)
			}
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", path, truncate(err.Message, maxCompactMessage))
	}
	if !verbose && !quiet {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hint: use --verbose for detailed error information")
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
