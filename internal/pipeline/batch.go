package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/satyagyan/internal/model"
)

// DefaultConcurrency is the number of concurrent checks when none is set.
const DefaultConcurrency = 4

// RunFunc checks one input and returns its report. It must always return
// a report; failures are recorded on it.
type RunFunc func(ctx context.Context, input model.Input) *model.FactCheckReport

// BatchProcessor handles concurrent checking of multiple inputs.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// run checks a single input.
	run RunFunc

	// concurrency is the maximum number of concurrent checks.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// onReport is called for each finished report, in completion order.
	onReport func(report *model.FactCheckReport, index int)
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithReportCallback streams each finished report to fn as soon as its
// check completes. fn receives the index of the input in the original
// slice and is called from worker goroutines, so it must be safe for
// concurrent use.
func WithReportCallback(fn func(report *model.FactCheckReport, index int)) BatchOption {
	return func(b *BatchProcessor) {
		b.onReport = fn
	}
}

// WithConcurrency sets the maximum number of concurrent checks.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor that checks each input
// with run.
func NewBatchProcessor(run RunFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		run:         run,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.New(slog.DiscardHandler)
	}

	return bp
}

// ProcessBatch checks multiple inputs concurrently and returns the reports
// in input order. It respects the configured concurrency limit and context
// cancellation: inputs not started before cancellation get a timed-out
// report.
//
// Returns all reports collected, even for inputs that failed or when ctx
// was cancelled. The error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []model.Input) ([]*model.FactCheckReport, error) {
	results := make([]*model.FactCheckReport, len(inputs))
	var mu sync.Mutex

	err := bp.process(ctx, inputs, func(report *model.FactCheckReport, index int) {
		mu.Lock()
		results[index] = report
		mu.Unlock()
		if bp.onReport != nil {
			bp.onReport(report, index)
		}
	})

	return results, err
}

func (bp *BatchProcessor) process(
	ctx context.Context,
	inputs []model.Input,
	callback func(report *model.FactCheckReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_inputs", len(inputs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report := model.NewFactCheckReport(input)
				report.TimedOut = true
				report.SetError(err)
				report.Finalize()
				callback(report, i)
				return nil
			}

			bp.logger.Info("checking input",
				"input", input.Label(),
				"index", i+1,
				"total", len(inputs),
			)

			report := bp.run(gctx, input)

			if report.HasError() {
				bp.logger.Warn("check failed",
					"input", input.Label(),
					"error", report.ErrorMessage,
				)
			} else {
				bp.logger.Info("check completed",
					"input", input.Label(),
					"verdict", report.Verdict,
				)
			}

			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Workers never return errors

	bp.logger.Info("batch processing complete",
		"total_inputs", len(inputs),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
