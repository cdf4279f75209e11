// Package main provides the offerline CLI: it loads a pipeline
// configuration, ranks the car-rental offers of its input and publishes the
// arranged and filtered lists.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/antoniop-zartis/ap-cartrawler/internal/cli"
	"github.com/antoniop-zartis/ap-cartrawler/internal/config"
	"github.com/antoniop-zartis/ap-cartrawler/internal/factory"
	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/internal/metrics"
	"github.com/antoniop-zartis/ap-cartrawler/internal/runtime"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	logger.CloseLogFile()
	if err == nil {
		return ExitSuccess
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitRuntimeError
}

// app holds the flag values of one CLI invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	dryRun    bool
	inputPath string
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "offerline",
		Short: "offerline - car-rental offer ranking pipeline",
		Long: `offerline loads car-rental offers, removes duplicates, arranges them by
supplier class, vehicle category and price, and drops overpriced
full-to-full offers.

Pipelines are declared in JSON or YAML files and follow the
Input → Filters → Rank → Outputs pattern.

Examples:
  # Validate a configuration file
  offerline validate pipeline.yaml

  # Run a pipeline
  offerline run pipeline.yaml

  # Run against another offer file without publishing
  offerline run --dry-run --input offers.json pipeline.yaml`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.configureLogging,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "Log format: json or human")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(a.validateCommand(), a.runCommand(), a.versionCommand())
	return root
}

func (a *app) configureLogging(_ *cobra.Command, _ []string) error {
	format, err := logger.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}

	if a.logFile != "" {
		return logger.SetLogFile(a.logFile, level, format)
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

func (a *app) options() cli.OutputOptions {
	return cli.OutputOptions{Verbose: a.verbose, Quiet: a.quiet, DryRun: a.dryRun}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a pipeline configuration file",
		Long: `Validate a pipeline configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: a.runValidate,
	}
}

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run a pipeline from configuration file",
		Long: `Run a pipeline defined in the configuration file.

The configuration file is first validated against the schema.
If validation fails, the pipeline will not be executed.

Exit codes:
  0 - Pipeline executed successfully
  1 - Validation errors (schema or module configuration)
  2 - Parse errors
  3 - Runtime errors`,
		Args: cobra.ExactArgs(1),
		RunE: a.runPipeline,
	}
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Rank offers without calling the output modules")
	cmd.Flags().StringVar(&a.inputPath, "input", "", "Read offers from this JSON or YAML file instead of the configured input")
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

// loadConfig parses and validates path, printing errors. The returned
// error carries the exit code.
func (a *app) loadConfig(path string) (*rental.Pipeline, *config.Result, error) {
	pipeline, result, err := config.Load(path)
	if err == nil {
		return pipeline, result, nil
	}

	cli.PrintConfigErrors(a.stderr, result, a.options())
	switch {
	case len(result.ParseErrors) > 0:
		return nil, result, &exitError{code: ExitParseError}
	case len(result.ValidationErrors) > 0:
		return nil, result, &exitError{code: ExitValidationError}
	default:
		fmt.Fprintf(a.stderr, "✗ Failed to convert configuration: %v\n", err)
		return nil, result, &exitError{code: ExitRuntimeError}
	}
}

func (a *app) runValidate(_ *cobra.Command, args []string) error {
	configPath := args[0]
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating configuration: %s\n", configPath)
	}

	pipeline, result, err := a.loadConfig(configPath)
	if err != nil {
		return err
	}

	if !a.quiet {
		cli.PrintValid(a.stdout, fmt.Sprintf("%s (format: %s)", configPath, result.Format))
		if a.verbose {
			cli.PrintConfigSummary(a.stdout, pipeline)
		}
	}
	return nil
}

func (a *app) runPipeline(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Loading pipeline configuration: %s\n", configPath)
	}

	pipeline, _, err := a.loadConfig(configPath)
	if err != nil {
		return err
	}
	if a.inputPath != "" {
		overrideInput(pipeline, a.inputPath)
	}
	if a.verbose {
		cli.PrintConfigSummary(a.stdout, pipeline)
	}

	modules, err := factory.Build(pipeline)
	if err != nil {
		fmt.Fprintf(a.stderr, "✗ Failed to create modules: %v\n", err)
		return &exitError{code: ExitValidationError}
	}

	executor := runtime.NewExecutorWithModules(modules.Input, modules.Filters, modules.Outputs, a.dryRun).
		WithMetrics(metrics.New())

	if !a.quiet {
		if a.dryRun {
			fmt.Fprintln(a.stdout, "Executing pipeline (dry-run mode - outputs will not be called)...")
		} else {
			fmt.Fprintln(a.stdout, "Executing pipeline...")
		}
	}

	result, err := executor.ExecuteWithContext(cmd.Context(), pipeline)
	cli.PrintExecutionResult(a.stdout, a.stderr, result, err, a.options())
	if err != nil {
		return &exitError{code: ExitRuntimeError}
	}
	return nil
}

// overrideInput points the pipeline input at a file, keeping the file
// format setting when the configured input is already a file.
func overrideInput(pipeline *rental.Pipeline, path string) {
	cfg := map[string]interface{}{"path": path}
	if pipeline.Input != nil && pipeline.Input.Type == "file" {
		if format, ok := pipeline.Input.Config["format"]; ok {
			cfg["format"] = format
		}
	}
	pipeline.Input = &rental.ModuleConfig{Type: "file", Config: cfg}
}
