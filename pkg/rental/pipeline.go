package rental

import "time"

// Pipeline is a complete offer pipeline configuration: where offers come
// from, which selection filters run before ranking, and where the ranked
// lists are published.
type Pipeline struct {
	// ID is the unique identifier for this pipeline
	ID string `json:"id"`

	// Name is the human-readable name of the pipeline
	Name string `json:"name"`

	// Description provides additional context about the pipeline
	Description string `json:"description,omitempty"`

	// Version is the pipeline configuration version
	Version string `json:"version"`

	// Input defines the offer source module
	Input *ModuleConfig `json:"input"`

	// Filters are selection modules applied to the loaded offers before ranking
	Filters []ModuleConfig `json:"filters,omitempty"`

	// Outputs receive the arranged and filtered lists
	Outputs []ModuleConfig `json:"outputs,omitempty"`

	// Metrics configures metric export for the run
	Metrics *MetricsConfig `json:"metrics,omitempty"`
}

// ModuleConfig is the configuration of one input, filter or output module.
type ModuleConfig struct {
	// Type identifies the module implementation (e.g. "file", "condition", "console")
	Type string `json:"type"`

	// Config contains the module-specific settings
	Config map[string]interface{} `json:"config"`
}

// MetricsConfig configures where run metrics are written.
type MetricsConfig struct {
	// Textfile is a path for a Prometheus text-format dump written after the run
	Textfile string `json:"textfile,omitempty"`
}

// Stage names published to output modules.
const (
	StageArranged = "arranged"
	StageFiltered = "filtered"
)

// ExecutionResult describes one pipeline run.
type ExecutionResult struct {
	// RunID uniquely identifies this execution
	RunID string `json:"runId"`

	// PipelineID is the ID of the executed pipeline
	PipelineID string `json:"pipelineId"`

	// Status is "success" or "error"
	Status string `json:"status"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	// InputCount is the number of offers returned by the input module
	InputCount int `json:"inputCount"`

	// SelectedCount is the number of offers left after selection filters
	SelectedCount int `json:"selectedCount"`

	// ArrangedCount is the size of the de-duplicated, ordered list
	ArrangedCount int `json:"arrangedCount"`

	// FilteredCount is the size of the list after overpriced offers are removed
	FilteredCount int `json:"filteredCount"`

	// OffersPublished counts offers accepted by output modules across both stages
	OffersPublished int `json:"offersPublished"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the module where the error occurred
	Module string `json:"module,omitempty"`

	// Category is the error classification (input, filter, statistics, ...)
	Category string `json:"category,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
