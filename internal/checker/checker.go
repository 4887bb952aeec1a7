package checker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/pipeline"
)

// PipelineFactory builds a fresh pipeline for one check. The checker
// passes its own options (progress, logger) which must be applied.
type PipelineFactory func(opts ...pipeline.Option) *pipeline.Pipeline

// Checker runs fact checks.
type Checker struct {
	newPipeline PipelineFactory
	store       database.Store
	useCache    bool
	cacheTTL    time.Duration
	timeout     time.Duration
	concurrency int
	progress    model.ProgressFunc
	logger      *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithStore saves every check to store and enables the result cache.
func WithStore(store database.Store) Option {
	return func(c *Checker) {
		c.store = store
	}
}

// WithCache sets whether stored results younger than ttl answer repeated
// inputs. It only has an effect together with WithStore.
func WithCache(enabled bool, ttl time.Duration) Option {
	return func(c *Checker) {
		c.useCache = enabled
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithCheckTimeout bounds a single check.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConcurrency sets the number of parallel checks in CheckMany.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithProgress reports the milestones of every check to fn.
func WithProgress(fn model.ProgressFunc) Option {
	return func(c *Checker) {
		c.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Checker that runs pipelines built by newPipeline.
func New(newPipeline PipelineFactory, opts ...Option) *Checker {
	c := &Checker{
		newPipeline: newPipeline,
		useCache:    true,
		cacheTTL:    config.DefaultCacheTTL,
		timeout:     config.DefaultCheckTimeout,
		concurrency: config.DefaultBatchSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the history store, or nil.
func (c *Checker) Store() database.Store {
	return c.store
}

// Check validates input, answers from the cache when possible, and
// otherwise runs the pipeline and saves the result.
//
// An invalid input returns a nil report and the validation error. A failed
// pipeline returns the report together with a *CheckError.
func (c *Checker) Check(ctx context.Context, input model.Input) (*model.FactCheckReport, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if cached := c.lookup(ctx, input); cached != nil {
		c.reportProgress(model.StageComplete)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p := c.newPipeline(pipeline.WithLogger(c.logger), pipeline.WithProgress(c.progress))
	report := model.NewFactCheckReport(input)

	err := p.Execute(ctx, report)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		report.TimedOut = true
	}

	c.save(ctx, report)

	if err != nil {
		stage := ""
		if names := p.StepNames(); len(report.PerformedStages) < len(names) {
			stage = names[len(report.PerformedStages)]
		}
		return report, &CheckError{Stage: stage, Err: err, Report: report}
	}
	return report, nil
}

// CheckMany checks inputs concurrently and returns the reports in input
// order. When callback is non-nil it also receives each report as it
// finishes; it is called from worker goroutines. Invalid inputs produce a
// report carrying the validation error. The returned error is non-nil only
// when ctx was cancelled, in which case the reports are still returned.
func (c *Checker) CheckMany(ctx context.Context, inputs []model.Input, callback func(report *model.FactCheckReport, index int)) ([]*model.FactCheckReport, error) {
	opts := []pipeline.BatchOption{
		pipeline.WithConcurrency(c.concurrency),
		pipeline.WithBatchLogger(c.logger),
	}
	if callback != nil {
		opts = append(opts, pipeline.WithReportCallback(callback))
	}
	return pipeline.NewBatchProcessor(c.checkOne, opts...).ProcessBatch(ctx, inputs)
}

// checkOne adapts Check to the batch processor, which needs a report for
// every input.
func (c *Checker) checkOne(ctx context.Context, input model.Input) *model.FactCheckReport {
	report, err := c.Check(ctx, input)
	if report == nil {
		report = model.NewFactCheckReport(input)
		report.SetError(err)
		report.Finalize()
	}
	return report
}

func (c *Checker) lookup(ctx context.Context, input model.Input) *model.FactCheckReport {
	if c.store == nil || !c.useCache {
		return nil
	}
	cached, err := c.store.FindByFingerprint(ctx, input.Fingerprint(), c.cacheTTL)
	if err != nil {
		c.logger.Warn("cache lookup failed", "input", input.Label(), "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	if !cached.Completed() {
		c.logger.Debug("ignoring incomplete cached result", "input", input.Label(), "id", cached.ID)
		return nil
	}
	c.logger.Info("using cached result", "input", input.Label(), "id", cached.ID, "checked_at", cached.CheckedAt)
	cached.Cached = true
	return cached
}

// save stores the report even when ctx has expired, so timed-out checks
// show up in history.
func (c *Checker) save(ctx context.Context, report *model.FactCheckReport) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.store.SaveCheck(ctx, report); err != nil {
		c.logger.Warn("failed to save check", "id", report.ID, "error", err)
	}
}

func (c *Checker) reportProgress(stage model.Stage) {
	if c.progress != nil {
		c.progress(stage)
	}
}
