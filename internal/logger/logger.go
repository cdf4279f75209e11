// Package logger provides structured logging for the offer pipeline.
// It wraps log/slog behind package-level helpers so every module logs with
// the same handler and the same snake_case field names.
//
// Two console formats are supported:
//   - JSON (default): one machine-readable object per line
//   - Human: a compact line with a level glyph and inline attributes
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the process-wide logger. Tests may replace it.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetLevel replaces the logger with a JSON logger at the given level.
func SetLevel(level slog.Level) {
	SetLevelAndFormat(level, FormatJSON)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithModule returns a logger tagged with a module type and stage.
func WithModule(stage, moduleType string) *slog.Logger {
	return Logger.With(slog.String("stage", stage), slog.String("module_type", moduleType))
}

// ExecutionContext identifies a pipeline run (and optionally the stage
// being executed) in log lines.
type ExecutionContext struct {
	// RunID is the unique identifier of the run (required)
	RunID string
	// PipelineName is the human-readable name of the pipeline
	PipelineName string
	// Stage is the current stage (input, select, dedupe, arrange, overpriced, output)
	Stage string
	// ModuleType is the type of the module being executed
	ModuleType string
	// DryRun is set when outputs are skipped
	DryRun bool
}

// StageError is the error summary attached to a failed stage log line.
type StageError struct {
	Code    string
	Message string
}

// Counts are the diagnostic sizes reported at the end of a run.
type Counts struct {
	Input    int
	Selected int
	Arranged int
	Filtered int
}

// LogExecutionStart logs the start of a pipeline run.
func LogExecutionStart(ctx ExecutionContext) {
	Logger.Info("execution started", contextAttrs(ctx)...)
}

// LogExecutionEnd logs the end of a pipeline run with its final status.
func LogExecutionEnd(ctx ExecutionContext, status string, counts Counts, duration time.Duration) {
	attrs := contextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("input_count", counts.Input),
		slog.Int("selected_count", counts.Selected),
		slog.Int("arranged_count", counts.Arranged),
		slog.Int("filtered_count", counts.Filtered),
		slog.Duration("duration", duration),
	)
	Logger.Info("execution completed", attrs...)
}

// LogStageStart logs the start of a stage.
func LogStageStart(ctx ExecutionContext) {
	Logger.Debug("stage started", contextAttrs(ctx)...)
}

// LogStageEnd logs the end of a stage. A non-nil err logs at error level.
func LogStageEnd(ctx ExecutionContext, recordCount int, duration time.Duration, err *StageError) {
	attrs := contextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("record_count", recordCount),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("error_code", err.Code),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// ExecutionMetrics holds the per-stage timings of a successful run.
type ExecutionMetrics struct {
	// TotalDuration is the total execution time
	TotalDuration time.Duration
	// InputDuration is the time spent loading offers
	InputDuration time.Duration
	// SelectDuration is the time spent in the selection filters
	SelectDuration time.Duration
	// RankDuration is the time spent de-duplicating, arranging and filtering
	RankDuration time.Duration
	// OutputDuration is the time spent publishing
	OutputDuration time.Duration
	// OffersPublished is the number of offers accepted by output modules
	OffersPublished int
}

// LogMetrics logs the performance summary of a run.
func LogMetrics(ctx ExecutionContext, metrics ExecutionMetrics) {
	attrs := contextAttrs(ctx)
	attrs = append(attrs,
		slog.Duration("total_duration", metrics.TotalDuration),
		slog.Duration("input_duration", metrics.InputDuration),
		slog.Duration("select_duration", metrics.SelectDuration),
		slog.Duration("rank_duration", metrics.RankDuration),
		slog.Duration("output_duration", metrics.OutputDuration),
		slog.Int("offers_published", metrics.OffersPublished),
	)
	Logger.Debug("execution metrics", attrs...)
}

func contextAttrs(ctx ExecutionContext) []any {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.PipelineName != "" {
		attrs = append(attrs, slog.String("pipeline_name", ctx.PipelineName))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.ModuleType != "" {
		attrs = append(attrs, slog.String("module_type", ctx.ModuleType))
	}
	if ctx.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	return attrs
}

// OutputFormat selects the console log format.
type OutputFormat int

const (
	// FormatJSON is the default machine-readable format
	FormatJSON OutputFormat = iota
	// FormatHuman is a compact console format
	FormatHuman
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (want json or human)", s)
	}
}

// SetLevelAndFormat sets both the log level and the console format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(consoleHandler(os.Stdout, level, format))
}

func consoleHandler(w io.Writer, level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// HumanHandlerOptions configures HumanHandler.
type HumanHandlerOptions struct {
	// Level is the minimum level written
	Level slog.Level
	// UseColors enables ANSI colours on the level glyph
	UseColors bool
}

// HumanHandler writes one compact, human-readable line per record.
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	attrs  []slog.Attr
}

// NewHumanHandler creates a HumanHandler writing to w.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{opts: *opts, writer: w}
}

// Enabled implements slog.Handler.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle implements slog.Handler.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(h.glyph(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		sb.WriteByte(' ')
		sb.WriteString(formatAttr(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteByte(' ')
		sb.WriteString(formatAttr(a))
		return true
	})
	sb.WriteByte('\n')

	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &HumanHandler{opts: h.opts, writer: h.writer, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened in the human format.
func (h *HumanHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *HumanHandler) glyph(level slog.Level) string {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorYellow = "\033[33m"
		colorCyan   = "\033[36m"
	)

	var prefix, color string
	switch {
	case level >= slog.LevelError:
		prefix, color = "✗", colorRed
	case level >= slog.LevelWarn:
		prefix, color = "⚠", colorYellow
	case level >= slog.LevelInfo:
		prefix, color = "ℹ", colorCyan
	default:
		prefix, color = "·", colorReset
	}

	if h.opts.UseColors {
		return color + prefix + colorReset
	}
	return prefix
}

func formatAttr(a slog.Attr) string {
	switch v := a.Value.Any().(type) {
	case time.Duration:
		return fmt.Sprintf("%s=%s", a.Key, formatDuration(v))
	case float64:
		return fmt.Sprintf("%s=%.2f", a.Key, v)
	default:
		return fmt.Sprintf("%s=%v", a.Key, v)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// logFile is the currently open log file, if any.
var logFile *os.File

// SetLogFile mirrors logging to path. The file always receives JSON; the
// console keeps the requested format.
func SetLogFile(path string, level slog.Level, format OutputFormat) error {
	CloseLogFile()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	Logger = slog.New(&teeHandler{
		console: consoleHandler(os.Stdout, level, format),
		file:    slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}),
	})
	Debug("log file opened", slog.String("path", path))
	return nil
}

// CloseLogFile closes the log file opened by SetLogFile.
func CloseLogFile() {
	if logFile == nil {
		return
	}
	if err := logFile.Close(); err != nil {
		Warn("failed to close log file", slog.String("error", err.Error()))
	}
	logFile = nil
}

// teeHandler forwards each record to a console and a file handler.
type teeHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.file.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if t.console.Enabled(ctx, r.Level) {
		if err := t.console.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if t.file.Enabled(ctx, r.Level) {
		return t.file.Handle(ctx, r)
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: t.console.WithAttrs(attrs), file: t.file.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: t.console.WithGroup(name), file: t.file.WithGroup(name)}
}
