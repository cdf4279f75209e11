package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Error codes for script module
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingKeep          = "MISSING_KEEP"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

// Common errors for script module
var (
	ErrScriptEmpty     = errors.New("script cannot be empty")
	ErrScriptTooLong   = errors.New("script exceeds maximum length")
	ErrMissingKeepFunc = errors.New("keep function not found in script")
	ErrKeepNotFunction = errors.New("keep is not a function")
)

// ScriptConfig represents the configuration for a script filter module.
// Exactly one of Script or ScriptFile must be set.
type ScriptConfig struct {
	// Script is inline JavaScript defining keep(offer)
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file defining keep(offer)
	ScriptFile string `json:"scriptFile,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule selects offers with a JavaScript predicate. The script must
// define keep(offer); an offer is kept when the call returns a truthy value.
// The offer argument is a plain object with the OfferView fields.
//
// A goja runtime is not goroutine-safe, so Process must not be called
// concurrently on the same module.
type ScriptModule struct {
	onError string
	runtime *goja.Runtime
	keepFn  goja.Callable
	console *jsConsole
}

var _ Module = (*ScriptModule)(nil)

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code        string
	Message     string
	RecordIndex int
	StackTrace  string
	Err         error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, recordIdx int, stackTrace string, err error) *ScriptError {
	return &ScriptError{
		Code:        code,
		Message:     message,
		RecordIndex: recordIdx,
		StackTrace:  stackTrace,
		Err:         err,
	}
}

// ParseScriptConfig parses a script configuration from a raw module config.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	config := ScriptConfig{}

	script, hasScript := cfg["script"].(string)
	scriptFile, hasScriptFile := cfg["scriptFile"].(string)

	if hasScript && hasScriptFile {
		return config, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}
	if !hasScript && !hasScriptFile {
		if cfg["script"] != nil {
			return config, fmt.Errorf("field 'script' must be a string")
		}
		if cfg["scriptFile"] != nil {
			return config, fmt.Errorf("field 'scriptFile' must be a string")
		}
		return config, fmt.Errorf("either 'script' or 'scriptFile' is required in script config")
	}

	config.Script = script
	config.ScriptFile = scriptFile
	if onError, ok := cfg["onError"].(string); ok {
		config.OnError = onError
	}
	return config, nil
}

// NewScriptFromConfig loads and compiles the script and checks that it
// defines keep.
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if err := validateScript(source); err != nil {
		return nil, err
	}

	vm := goja.New()
	console, err := newJSConsole(vm)
	if err != nil {
		return nil, err
	}

	if _, err := vm.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, "", err)
	}

	keepVal := vm.Get("keep")
	if keepVal == nil || goja.IsUndefined(keepVal) {
		return nil, newScriptError(ErrCodeMissingKeep, ErrMissingKeepFunc.Error(), -1, "", ErrMissingKeepFunc)
	}
	keepFn, ok := goja.AssertFunction(keepVal)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, ErrKeepNotFunction.Error(), -1, "", ErrKeepNotFunction)
	}

	onError := normalizeOnError("script", config.OnError)
	logger.Debug("script module initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{
		onError: onError,
		runtime: vm,
		keepFn:  keepFn,
		console: console,
	}, nil
}

func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, "", nil)
	}
	if config.ScriptFile == "" {
		return config.Script, nil
	}

	if err := validateScriptFilePath(config.ScriptFile); err != nil {
		return "", err
	}

	file, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", config.ScriptFile),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// Read one byte past the limit to detect oversized files.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q is larger than %d bytes", config.ScriptFile, MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return string(content), nil
}

// validateScriptFilePath rejects paths with NUL bytes or ".." segments.
func validateScriptFilePath(filePath string) error {
	if strings.Contains(filePath, "\x00") {
		return newScriptError(ErrCodeInvalidScriptFile, "scriptFile path contains invalid characters", -1, "", nil)
	}
	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return newScriptError(ErrCodeInvalidScriptFile, fmt.Sprintf("scriptFile path contains path traversal: %q", filePath), -1, "", nil)
		}
	}
	return nil
}

func validateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return newScriptError(ErrCodeScriptEmpty, ErrScriptEmpty.Error(), -1, "", ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return nil
}

// Process calls keep(offer) for each offer and returns the kept ones.
// Script errors follow onError: "fail" aborts, "skip" drops the offer,
// "log" keeps it.
func (m *ScriptModule) Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	result := make([]rental.Offer, 0, len(offers))
	errorCount := 0
	for idx, offer := range offers {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		keep, err := m.evaluate(ctx, offer, idx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errorCount++
			switch m.onError {
			case OnErrorSkip:
				logger.Warn("skipping offer due to script error",
					slog.String("module_type", "script"),
					slog.Int("record_index", idx),
					slog.String("error", err.Error()),
				)
				continue
			case OnErrorLog:
				logger.Error("script error (continuing)",
					slog.String("module_type", "script"),
					slog.Int("record_index", idx),
					slog.String("error", err.Error()),
				)
				result = append(result, offer)
				continue
			default:
				return nil, err
			}
		}
		if keep {
			result = append(result, offer)
		}
	}

	logger.Debug("script filter applied",
		slog.String("module_type", "script"),
		slog.Int("input_records", len(offers)),
		slog.Int("output_records", len(result)),
		slog.Int("error_count", errorCount),
	)
	return result, nil
}

// evaluate runs keep for one offer. Cancelling ctx interrupts the script.
func (m *ScriptModule) evaluate(ctx context.Context, offer rental.Offer, idx int) (bool, error) {
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			m.runtime.Interrupt(ctx.Err().Error())
		case <-stop:
		}
	}()

	m.console.SetRecordIndex(idx)
	value, err := m.keepFn(goja.Undefined(), m.runtime.ToValue(NewOfferView(offer).asMap()))
	m.console.ClearRecordIndex()

	close(stop)
	<-watcherDone
	m.runtime.ClearInterrupt()

	if err != nil {
		return false, handleJSError(err, idx)
	}
	return value.ToBoolean(), nil
}

func handleJSError(err error, idx int) error {
	var jsErr *goja.Exception
	if errors.As(err, &jsErr) {
		stackTrace := ""
		if obj, ok := jsErr.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				stackTrace = stack.String()
			}
		}
		return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script execution failed at offer %d: %v", idx, jsErr.Value()), idx, stackTrace, err)
	}
	return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script execution failed at offer %d: %v", idx, err), idx, "", err)
}
