package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
)

// MaxLogMessageLength is the maximum length of a single console message (8KB)
const MaxLogMessageLength = 8 * 1024

// jsConsole routes console.log/info/warn/error/debug calls made by scripts
// to the package logger.
type jsConsole struct {
	recordIdx *int
}

// newJSConsole creates a console and registers it in the runtime.
func newJSConsole(runtime *goja.Runtime) (*jsConsole, error) {
	c := &jsConsole{}

	console := runtime.NewObject()
	for name, level := range map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	} {
		level := level
		fn := func(call goja.FunctionCall) goja.Value {
			c.logWithLevel(level, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return nil, fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := runtime.Set("console", console); err != nil {
		return nil, fmt.Errorf("runtime.Set(console): %w", err)
	}
	return c, nil
}

// SetRecordIndex sets the offer index attached to console lines.
func (c *jsConsole) SetRecordIndex(idx int) {
	c.recordIdx = &idx
}

// ClearRecordIndex removes the offer index.
func (c *jsConsole) ClearRecordIndex() {
	c.recordIdx = nil
}

func (c *jsConsole) logWithLevel(level slog.Level, args []goja.Value) {
	message := formatArgs(args)
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength-3] + "..."
	}

	attrs := []any{
		slog.String("source", "javascript"),
		slog.String("module_type", "script"),
	}
	if c.recordIdx != nil {
		attrs = append(attrs, slog.Int("record_index", *c.recordIdx))
	}

	switch level {
	case slog.LevelDebug:
		logger.Debug(message, attrs...)
	case slog.LevelWarn:
		logger.Warn(message, attrs...)
	case slog.LevelError:
		logger.Error(message, attrs...)
	default:
		logger.Info(message, attrs...)
	}
}

// formatArgs joins console arguments with spaces the way Node does:
// strings verbatim, everything else as JSON when possible.
func formatArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return "undefined"
	}
	if goja.IsNull(val) {
		return "null"
	}

	switch v := val.Export().(type) {
	case string:
		return v
	case bool, int64, float64:
		return fmt.Sprintf("%v", v)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return val.String()
		}
		return string(data)
	default:
		return val.String()
	}
}
