// Package runtime provides the pipeline execution engine.
// It orchestrates the execution of the input module, the selection filters,
// the offer ranking and the output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/antoniop-zartis/ap-cartrawler/internal/errhandling"
	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/internal/metrics"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/input"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/output"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Error codes for pipeline execution errors
const (
	ErrCodeInputFailed  = "INPUT_FAILED"
	ErrCodeFilterFailed = "FILTER_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage names used in logs and metrics
const (
	StageInput  = "input"
	StageSelect = "select"
	StageRank   = "rank"
	StageOutput = "output"
)

// Common errors
var (
	// ErrNilPipeline is returned when pipeline configuration is nil
	ErrNilPipeline = errors.New("pipeline configuration is nil")

	// ErrNilInputModule is returned when input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNoOutputModules is returned when a non dry-run execution has no output
	ErrNoOutputModules = errors.New("no output module configured")
)

// Executor runs a pipeline: Input → selection filters → ranking → outputs.
//
// The Executor only talks to modules through their interfaces, so modules
// never depend on the runtime.
type Executor struct {
	inputModule   input.Module
	filterModules []filter.Module
	outputModules []output.Module
	dryRun        bool
	metrics       *metrics.Registry
	newRunID      func() string
}

// NewExecutorWithModules creates an executor.
//
// Parameters:
//   - inputModule: loads the offers (may be nil when using ExecuteWithOffers)
//   - filterModules: selection filters applied in order before ranking (can be nil)
//   - outputModules: receive the arranged and filtered lists
//   - dryRun: if true, output modules are not called
func NewExecutorWithModules(
	inputModule input.Module,
	filterModules []filter.Module,
	outputModules []output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:   inputModule,
		filterModules: filterModules,
		outputModules: outputModules,
		dryRun:        dryRun,
		newRunID:      uuid.NewString,
	}
}

// WithMetrics records run metrics into reg.
func (e *Executor) WithMetrics(reg *metrics.Registry) *Executor {
	e.metrics = reg
	return e
}

// stageTimings holds per-stage durations of one run.
type stageTimings struct {
	input  time.Duration
	sel    time.Duration
	rank   time.Duration
	output time.Duration
}

// run carries the state of one execution.
type run struct {
	pipeline *rental.Pipeline
	result   *rental.ExecutionResult
	execCtx  logger.ExecutionContext
	timings  stageTimings
}

func (r *run) stage(name string) logger.ExecutionContext {
	ctx := r.execCtx
	ctx.Stage = name
	return ctx
}

func (r *run) counts() logger.Counts {
	return logger.Counts{
		Input:    r.result.InputCount,
		Selected: r.result.SelectedCount,
		Arranged: r.result.ArrangedCount,
		Filtered: r.result.FilteredCount,
	}
}

// Execute runs the pipeline with a background context.
func (e *Executor) Execute(pipeline *rental.Pipeline) (*rental.ExecutionResult, error) {
	return e.ExecuteWithContext(context.Background(), pipeline)
}

// ExecuteWithContext runs the pipeline.
//
// Resource management: the input module is closed as soon as the offers are
// loaded; output modules are closed at the end of the run.
//
// The returned result is never nil; on failure its Error field describes
// the failing stage and the error is returned as well.
func (e *Executor) ExecuteWithContext(ctx context.Context, pipeline *rental.Pipeline) (*rental.ExecutionResult, error) {
	r, err := e.start(pipeline, e.inputModule == nil)
	if err != nil {
		return r.result, err
	}
	defer e.closeOutputs(pipeline.ID)

	offers, err := e.executeInput(ctx, r)
	e.closeModule(pipeline.ID, "input", e.inputModule)
	if err != nil {
		return e.finish(r, err)
	}

	return e.finish(r, e.executeFrom(ctx, r, offers))
}

// ExecuteWithOffers runs the pipeline on offers that were already loaded.
// The input module, if any, is ignored.
func (e *Executor) ExecuteWithOffers(ctx context.Context, pipeline *rental.Pipeline, offers []rental.Offer) (*rental.ExecutionResult, error) {
	r, err := e.start(pipeline, false)
	if err != nil {
		return r.result, err
	}
	defer e.closeOutputs(pipeline.ID)

	r.result.InputCount = len(offers)
	return e.finish(r, e.executeFrom(ctx, r, offers))
}

// start validates the execution and logs its start.
func (e *Executor) start(pipeline *rental.Pipeline, missingInput bool) (*run, error) {
	r := &run{
		pipeline: pipeline,
		result: &rental.ExecutionResult{
			RunID:     e.newRunID(),
			StartedAt: time.Now(),
			Status:    StatusError,
		},
	}

	var err error
	module := ""
	switch {
	case pipeline == nil:
		err = ErrNilPipeline
	case missingInput:
		err, module = ErrNilInputModule, "input"
	case len(e.outputModules) == 0 && !e.dryRun:
		err, module = ErrNoOutputModules, "output"
	}
	if err != nil {
		logger.Error("pipeline execution failed", slog.String("run_id", r.result.RunID), slog.String("error", err.Error()))
		r.result.CompletedAt = time.Now()
		r.result.Error = buildExecutionError(ErrCodeInvalidInput, module, errhandling.NewConfigError(err.Error(), err))
		e.recordRun(StatusError)
		return r, err
	}

	r.result.PipelineID = pipeline.ID
	r.execCtx = logger.ExecutionContext{
		RunID:        r.result.RunID,
		PipelineName: pipeline.Name,
		DryRun:       e.dryRun,
	}
	logger.LogExecutionStart(r.execCtx)
	return r, nil
}

// executeFrom runs every stage after input.
func (e *Executor) executeFrom(ctx context.Context, r *run, offers []rental.Offer) error {
	selected, err := e.executeSelection(ctx, r, offers)
	if err != nil {
		return err
	}

	ranked, err := e.executeRanking(ctx, r, selected)
	if err != nil {
		return err
	}

	return e.executeOutputs(ctx, r, ranked)
}

func (e *Executor) executeInput(ctx context.Context, r *run) ([]rental.Offer, error) {
	stageCtx := r.stage(StageInput)
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	offers, err := e.inputModule.Fetch(ctx)
	r.timings.input = time.Since(startTime)
	e.observeStage(StageInput, r.timings.input)

	if err != nil {
		err = classify(err, errhandling.NewInputError, "loading offers")
		r.result.Error = buildExecutionError(ErrCodeInputFailed, "input", err)
		logger.LogStageEnd(stageCtx, 0, r.timings.input, &logger.StageError{Code: ErrCodeInputFailed, Message: err.Error()})
		return nil, fmt.Errorf("executing input module: %w", err)
	}

	r.result.InputCount = len(offers)
	if e.metrics != nil {
		e.metrics.OffersLoaded.Add(float64(len(offers)))
	}
	logger.LogStageEnd(stageCtx, len(offers), r.timings.input, nil)
	return offers, nil
}

func (e *Executor) executeSelection(ctx context.Context, r *run, offers []rental.Offer) ([]rental.Offer, error) {
	stageCtx := r.stage(StageSelect)
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	current := offers
	for i, m := range e.filterModules {
		next, err := m.Process(ctx, current)
		if err != nil {
			r.timings.sel = time.Since(startTime)
			err = classify(err, errhandling.NewFilterError, fmt.Sprintf("filter module %d", i))
			r.result.Error = buildExecutionError(ErrCodeFilterFailed, "filter", err)
			r.result.Error.Details = map[string]interface{}{"filterIndex": i}
			if i < len(r.pipeline.Filters) {
				r.result.Error.Details["filterType"] = r.pipeline.Filters[i].Type
			}
			logger.LogStageEnd(stageCtx, len(current), r.timings.sel, &logger.StageError{Code: ErrCodeFilterFailed, Message: err.Error()})
			return nil, fmt.Errorf("executing filter module %d: %w", i, err)
		}
		current = next
	}
	r.timings.sel = time.Since(startTime)
	e.observeStage(StageSelect, r.timings.sel)

	r.result.SelectedCount = len(current)
	if e.metrics != nil {
		e.metrics.OffersSelected.Add(float64(len(current)))
	}
	logger.LogStageEnd(stageCtx, len(current), r.timings.sel, nil)
	return current, nil
}

func (e *Executor) executeRanking(ctx context.Context, r *run, offers []rental.Offer) (*Result, error) {
	stageCtx := r.stage(StageRank)
	logger.LogStageStart(stageCtx)

	startTime := time.Now()
	ranked, err := Process(ctx, offers)
	r.timings.rank = time.Since(startTime)
	e.observeStage(StageRank, r.timings.rank)

	if err != nil {
		r.result.Error = buildExecutionError(ErrCodeFilterFailed, "rank", err)
		logger.LogStageEnd(stageCtx, len(offers), r.timings.rank, &logger.StageError{Code: ErrCodeFilterFailed, Message: err.Error()})
		return nil, fmt.Errorf("ranking offers: %w", err)
	}

	r.result.ArrangedCount = ranked.ArrangedCount
	r.result.FilteredCount = ranked.FilteredCount
	if e.metrics != nil {
		e.metrics.DuplicatesDropped.Add(float64(ranked.Duplicates()))
		e.metrics.OffersArranged.Add(float64(ranked.ArrangedCount))
		e.metrics.OffersRemoved.Add(float64(ranked.Removed()))
		e.metrics.OffersFiltered.Add(float64(ranked.FilteredCount))
		e.metrics.CorporateMedian.Set(ranked.Thresholds.Corporate)
		e.metrics.NonCorporateMedian.Set(ranked.Thresholds.NonCorporate)
	}
	logger.LogStageEnd(stageCtx, ranked.FilteredCount, r.timings.rank, nil)
	return ranked, nil
}

func (e *Executor) executeOutputs(ctx context.Context, r *run, ranked *Result) error {
	stageCtx := r.stage(StageOutput)
	logger.LogStageStart(stageCtx)

	if e.dryRun {
		logger.Info("dry run: output modules skipped",
			slog.String("run_id", r.result.RunID),
			slog.Int("arranged_count", ranked.ArrangedCount),
			slog.Int("filtered_count", ranked.FilteredCount),
			slog.Int("output_count", len(e.outputModules)),
		)
		return nil
	}

	startTime := time.Now()
	stages := []struct {
		name   string
		offers []rental.Offer
	}{
		{rental.StageArranged, ranked.Arranged},
		{rental.StageFiltered, ranked.Filtered},
	}
	for _, stage := range stages {
		for i, m := range e.outputModules {
			moduleType := outputType(r.pipeline, i)
			sent, err := m.Send(ctx, stage.name, stage.offers)
			r.result.OffersPublished += sent
			if e.metrics != nil && sent > 0 {
				e.metrics.OffersPublished.WithLabelValues(stage.name, moduleType).Add(float64(sent))
			}
			if err != nil {
				r.timings.output = time.Since(startTime)
				err = classify(err, errhandling.NewOutputError, fmt.Sprintf("%s output", moduleType))
				r.result.Error = buildExecutionError(ErrCodeOutputFailed, "output", err)
				r.result.Error.Details = map[string]interface{}{"outputIndex": i, "stage": stage.name}
				logger.LogStageEnd(stageCtx, r.result.OffersPublished, r.timings.output, &logger.StageError{Code: ErrCodeOutputFailed, Message: err.Error()})
				return fmt.Errorf("executing output module %d (%s): %w", i, stage.name, err)
			}
		}
	}
	r.timings.output = time.Since(startTime)
	e.observeStage(StageOutput, r.timings.output)

	logger.LogStageEnd(stageCtx, r.result.OffersPublished, r.timings.output, nil)
	return nil
}

// finish sets the final status, logs the end of the run and writes the
// metrics textfile when configured.
func (e *Executor) finish(r *run, err error) (*rental.ExecutionResult, error) {
	r.result.CompletedAt = time.Now()
	totalDuration := r.result.CompletedAt.Sub(r.result.StartedAt)

	status := StatusSuccess
	if err != nil {
		status = StatusError
	} else {
		r.result.Status = StatusSuccess
		r.result.Error = nil
	}

	logger.LogExecutionEnd(r.execCtx, status, r.counts(), totalDuration)
	if err == nil {
		logger.LogMetrics(r.execCtx, logger.ExecutionMetrics{
			TotalDuration:   totalDuration,
			InputDuration:   r.timings.input,
			SelectDuration:  r.timings.sel,
			RankDuration:    r.timings.rank,
			OutputDuration:  r.timings.output,
			OffersPublished: r.result.OffersPublished,
		})
	}

	e.recordRun(status)
	e.exportMetrics(r)
	return r.result, err
}

func (e *Executor) recordRun(status string) {
	if e.metrics != nil {
		e.metrics.Runs.WithLabelValues(status).Inc()
	}
}

func (e *Executor) observeStage(stage string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (e *Executor) exportMetrics(r *run) {
	if e.metrics == nil || r.pipeline.Metrics == nil || r.pipeline.Metrics.Textfile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(r.pipeline.Metrics.Textfile); err != nil {
		logger.Warn("failed to export metrics",
			slog.String("run_id", r.result.RunID),
			slog.String("path", r.pipeline.Metrics.Textfile),
			slog.String("error", err.Error()),
		)
	}
}

// classify keeps cancellation and already classified errors as they are
// and wraps everything else with the stage's category.
func classify(err error, wrap func(string, error) *errhandling.ClassifiedError, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var classified *errhandling.ClassifiedError
	if errors.As(err, &classified) {
		return err
	}
	return wrap(message, err)
}

// buildExecutionError creates an ExecutionError with the error category.
func buildExecutionError(code, module string, err error) *rental.ExecutionError {
	return &rental.ExecutionError{
		Code:     code,
		Message:  err.Error(),
		Module:   module,
		Category: string(errhandling.GetErrorCategory(err)),
	}
}

func outputType(pipeline *rental.Pipeline, i int) string {
	if i < len(pipeline.Outputs) && pipeline.Outputs[i].Type != "" {
		return pipeline.Outputs[i].Type
	}
	return "output"
}

// moduleCloser interface for modules that can be closed.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(pipelineID, moduleName string, m moduleCloser) {
	if m == nil {
		return
	}
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("pipeline_id", pipelineID),
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) closeOutputs(pipelineID string) {
	for _, m := range e.outputModules {
		e.closeModule(pipelineID, "output", m)
	}
}
