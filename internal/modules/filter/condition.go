package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Error codes for condition module
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
)

// Common errors for condition module
var (
	// ErrEmptyExpression is returned when the expression is missing or blank
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression does not compile
	ErrInvalidExpression = errors.New("invalid expression")
)

// Routing behavior constants
const (
	OnConditionKeep = "keep"
	OnConditionDrop = "drop"
)

// ConditionConfig represents the configuration for a condition filter module.
type ConditionConfig struct {
	// Expression is a boolean expr expression over the offer fields (required)
	Expression string `json:"expression"`
	// OnTrue is the action for offers matching the expression: "keep" (default) or "drop"
	OnTrue string `json:"onTrue,omitempty"`
	// OnFalse is the action for other offers: "keep" or "drop" (default)
	OnFalse string `json:"onFalse,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ConditionModule keeps or drops offers according to an expression.
//
// The expression sees the fields of OfferView under their JSON names, for
// example `rentalCost < 200 && fuelPolicy == "FULL_TO_EMPTY"` or
// `corporate || category == "MINI"`.
type ConditionModule struct {
	expression string
	onTrue     string
	onFalse    string
	onError    string
	program    *vm.Program
}

var _ Module = (*ConditionModule)(nil)

// ConditionError carries structured context for condition evaluation failures.
type ConditionError struct {
	Code        string
	Message     string
	Expression  string
	RecordIndex int
	Err         error
}

func (e *ConditionError) Error() string {
	return e.Message
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// ParseConditionConfig parses a condition configuration from a raw module config.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	config := ConditionConfig{}

	expression, ok := cfg["expression"].(string)
	if !ok {
		if cfg["expression"] != nil {
			return config, fmt.Errorf("field 'expression' must be a string")
		}
		return config, fmt.Errorf("'expression' is required in condition config")
	}
	config.Expression = expression

	for key, dst := range map[string]*string{
		"onTrue":  &config.OnTrue,
		"onFalse": &config.OnFalse,
		"onError": &config.OnError,
	} {
		if v, present := cfg[key]; present {
			s, ok := v.(string)
			if !ok {
				return config, fmt.Errorf("field '%s' must be a string", key)
			}
			*dst = s
		}
	}
	return config, nil
}

// NewConditionFromConfig compiles the expression and returns the module.
func NewConditionFromConfig(config ConditionConfig) (*ConditionModule, error) {
	if strings.TrimSpace(config.Expression) == "" {
		return nil, ErrEmptyExpression
	}

	onTrue, err := normalizeAction("onTrue", config.OnTrue, OnConditionKeep)
	if err != nil {
		return nil, err
	}
	onFalse, err := normalizeAction("onFalse", config.OnFalse, OnConditionDrop)
	if err != nil {
		return nil, err
	}
	onError := normalizeOnError("condition", config.OnError)

	program, err := expr.Compile(config.Expression, expr.Env(OfferView{}), expr.AsBool())
	if err != nil {
		return nil, &ConditionError{
			Code:        ErrCodeInvalidExpression,
			Message:     fmt.Sprintf("%v: %v", ErrInvalidExpression, err),
			Expression:  config.Expression,
			RecordIndex: -1,
			Err:         ErrInvalidExpression,
		}
	}

	logger.Debug("condition module initialized",
		slog.String("expression", config.Expression),
		slog.String("on_true", onTrue),
		slog.String("on_false", onFalse),
		slog.String("on_error", onError),
	)

	return &ConditionModule{
		expression: config.Expression,
		onTrue:     onTrue,
		onFalse:    onFalse,
		onError:    onError,
		program:    program,
	}, nil
}

func normalizeAction(field, value, def string) (string, error) {
	switch value {
	case "":
		return def, nil
	case OnConditionKeep, OnConditionDrop:
		return value, nil
	default:
		return "", fmt.Errorf("invalid %s value %q (want %q or %q)", field, value, OnConditionKeep, OnConditionDrop)
	}
}

// normalizeOnError defaults unknown or empty modes to fail.
func normalizeOnError(moduleType, onError string) string {
	switch onError {
	case "":
		return OnErrorFail
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return onError
	default:
		logger.Warn("invalid onError value; defaulting to fail",
			slog.String("module_type", moduleType),
			slog.String("on_error", onError),
		)
		return OnErrorFail
	}
}

// Process evaluates the expression for each offer and keeps or drops it
// according to onTrue/onFalse. Evaluation errors follow onError: "fail"
// aborts, "skip" drops the offer, "log" keeps it.
func (c *ConditionModule) Process(ctx context.Context, offers []rental.Offer) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	result := make([]rental.Offer, 0, len(offers))
	for idx, offer := range offers {
		output, err := expr.Run(c.program, NewOfferView(offer))
		if err != nil {
			condErr := &ConditionError{
				Code:        ErrCodeEvaluationFailed,
				Message:     fmt.Sprintf("condition evaluation failed at offer %d: %v", idx, err),
				Expression:  c.expression,
				RecordIndex: idx,
				Err:         err,
			}
			switch c.onError {
			case OnErrorSkip:
				logger.Warn("skipping offer due to condition evaluation error",
					slog.Int("record_index", idx),
					slog.String("expression", c.expression),
					slog.String("error", err.Error()),
				)
				continue
			case OnErrorLog:
				logger.Error("condition evaluation error (continuing)",
					slog.Int("record_index", idx),
					slog.String("expression", c.expression),
					slog.String("error", err.Error()),
				)
				result = append(result, offer)
				continue
			default:
				return nil, condErr
			}
		}

		action := c.onFalse
		if matched, _ := output.(bool); matched {
			action = c.onTrue
		}
		if action == OnConditionKeep {
			result = append(result, offer)
		}
	}

	logger.Debug("condition filter applied",
		slog.String("module_type", "condition"),
		slog.Int("input_records", len(offers)),
		slog.Int("output_records", len(result)),
	)
	return result, nil
}
