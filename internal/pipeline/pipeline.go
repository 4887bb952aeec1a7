package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/satyagyan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the report to modify.
	// Returns an error if the step fails; the pipeline records it in the
	// report.
	Do(ctx context.Context, report *model.FactCheckReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool

	// progress receives the milestones of the check. May be nil.
	progress model.ProgressFunc
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, log output is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the report, but subsequent steps still execute.
//
// The default is to stop on error: without content there is nothing to
// research, and without research the analysis has no context.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithProgress registers a callback for the progress milestones.
func WithProgress(fn model.ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}

	return p
}

// AddSteps appends steps to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step; steps handle their own
// timeouts. Progress is reported as Initializing at the start, Loading
// before the first step, Executing once the first step has finished and
// Complete when every step ran. The report is finalized on every return
// path, so its verdict always matches its result text.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded in report).
func (p *Pipeline) Execute(ctx context.Context, report *model.FactCheckReport) error {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		report.Finalize()
	}()

	p.report(model.StageInitializing)

	for i, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"input", report.Input.Label(),
				"reason", ctx.Err(),
			)
			report.TimedOut = true
			report.SetError(ctx.Err())
			return ctx.Err()
		default:
		}

		if i == 0 {
			p.report(model.StageLoading)
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"input", report.Input.Label(),
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"input", report.Input.Label(),
				"error", err,
			)

			report.SetError(err)

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"input", report.Input.Label(),
			)
		}

		report.PerformedStages = append(report.PerformedStages, step.Name())

		if i == 0 {
			p.report(model.StageExecuting)
		}
	}

	p.report(model.StageComplete)
	return nil
}

func (p *Pipeline) report(stage model.Stage) {
	if p.progress != nil {
		p.progress(stage)
	}
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
