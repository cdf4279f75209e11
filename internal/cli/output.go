package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func success(msg string) string {
	return successStyle.Render("✓") + " " + msg
}

func failure(msg string) string {
	return failureStyle.Render("✗") + " " + msg
}

// PrintExecutionResult prints the outcome of a run. Failures go to errW,
// the success summary to out (suppressed by Quiet).
func PrintExecutionResult(out, errW io.Writer, result *rental.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(errW, failure("No execution result available"))
		return
	}

	if err != nil {
		fmt.Fprintln(errW, failure("Pipeline execution failed"))
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(errW, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(errW, "  Code: %s\n", result.Error.Code)
			if result.Error.Category != "" {
				fmt.Fprintf(errW, "  Category: %s\n", result.Error.Category)
			}
			fmt.Fprintf(errW, "  Error: %s\n", result.Error.Message)
		} else {
			fmt.Fprintf(errW, "  Error: %v\n", err)
		}
		if opts.Verbose && result.RunID != "" {
			fmt.Fprintf(errW, "  Run ID: %s\n", result.RunID)
		}
		return
	}

	if opts.Quiet {
		return
	}

	fmt.Fprintln(out, success("Pipeline executed successfully"))
	fmt.Fprintf(out, "  Offers loaded: %d\n", result.InputCount)
	if result.SelectedCount != result.InputCount {
		fmt.Fprintf(out, "  Offers selected: %d\n", result.SelectedCount)
	}
	fmt.Fprintf(out, "  Arranged: %d (%d duplicate(s) removed)\n", result.ArrangedCount, result.SelectedCount-result.ArrangedCount)
	fmt.Fprintf(out, "  Filtered: %d (%d overpriced offer(s) removed)\n", result.FilteredCount, result.ArrangedCount-result.FilteredCount)
	if opts.DryRun {
		fmt.Fprintln(out, "  Dry run: no offers were published")
	} else {
		fmt.Fprintf(out, "  Offers published: %d\n", result.OffersPublished)
	}
	if opts.Verbose {
		fmt.Fprintf(out, "  Run ID: %s\n", result.RunID)
		fmt.Fprintf(out, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
}

// PrintConfigSummary prints the name, version and modules of a pipeline.
func PrintConfigSummary(w io.Writer, pipeline *rental.Pipeline) {
	if pipeline == nil {
		return
	}
	fmt.Fprintf(w, "  Pipeline: %s\n", pipeline.Name)
	fmt.Fprintf(w, "  Version: %s\n", pipeline.Version)
	if pipeline.Input != nil {
		fmt.Fprintf(w, "  Input: %s\n", pipeline.Input.Type)
	}
	if len(pipeline.Filters) > 0 {
		fmt.Fprintf(w, "  Filters: %s\n", moduleTypes(pipeline.Filters))
	}
	if len(pipeline.Outputs) > 0 {
		fmt.Fprintf(w, "  Outputs: %s\n", moduleTypes(pipeline.Outputs))
	}
}

// PrintValid prints the success line of the validate command.
func PrintValid(w io.Writer, path string) {
	fmt.Fprintln(w, success(fmt.Sprintf("Configuration is valid: %s", path)))
}

func moduleTypes(modules []rental.ModuleConfig) string {
	types := make([]string, len(modules))
	for i, m := range modules {
		types[i] = m.Type
	}
	return strings.Join(types, ", ")
}
