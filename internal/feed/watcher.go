package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/nao1215/satyagyan/internal/model"
)

// DefaultSchedule polls once an hour.
const DefaultSchedule = "@every 1h"

// Checker checks a single input.
type Checker interface {
	Check(ctx context.Context, input model.Input) (*model.FactCheckReport, error)
}

// Watcher polls a feed on a schedule and checks new items.
type Watcher struct {
	loader   *Loader
	checker  Checker
	feedURL  string
	schedule cron.Schedule
	spec     string

	skipExisting bool
	onReport     func(*model.FactCheckReport)
	logger       *slog.Logger

	// pollMu serializes polls so a slow tick never overlaps the next one.
	pollMu sync.Mutex
	seen   map[string]struct{}
	primed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLoader sets the feed loader.
func WithLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// WithSchedule sets the cron schedule, e.g. "@every 30m" or "0 * * * *".
func WithSchedule(spec string) WatcherOption {
	return func(w *Watcher) {
		if spec != "" {
			w.spec = spec
		}
	}
}

// WithSkipExisting marks the items present at the first poll as seen
// without checking them.
func WithSkipExisting(skip bool) WatcherOption {
	return func(w *Watcher) {
		w.skipExisting = skip
	}
}

// WithReportHandler is called with every finished report.
func WithReportHandler(fn func(*model.FactCheckReport)) WatcherOption {
	return func(w *Watcher) {
		w.onReport = fn
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a Watcher for feedURL.
func NewWatcher(feedURL string, checker Checker, opts ...WatcherOption) (*Watcher, error) {
	if feedURL == "" {
		return nil, ErrNoFeedURL
	}
	if checker == nil {
		return nil, ErrNoChecker
	}

	w := &Watcher{
		loader:  NewLoader(nil),
		checker: checker,
		feedURL: feedURL,
		spec:    DefaultSchedule,
		logger:  slog.New(slog.DiscardHandler),
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	schedule, err := cron.ParseStandard(w.spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", w.spec, err)
	}
	w.schedule = schedule

	return w, nil
}

// Poll loads the feed once and checks every unseen item in feed order.
// It returns the number of items checked.
//
// Items whose check failed stay unseen and are retried on the next poll.
// Invalid items are marked seen.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	inputs, err := w.loader.Load(ctx, w.feedURL)
	if err != nil {
		return 0, err
	}

	if !w.primed {
		w.primed = true
		if w.skipExisting {
			for _, in := range inputs {
				w.seen[in.Fingerprint()] = struct{}{}
			}
			w.logger.Info("skipping existing feed items", "feed", w.feedURL, "items", len(inputs))
			return 0, nil
		}
	}

	checked := 0
	for _, in := range inputs {
		if ctx.Err() != nil {
			return checked, ctx.Err()
		}

		fp := in.Fingerprint()
		if _, ok := w.seen[fp]; ok {
			continue
		}

		report, err := w.checker.Check(ctx, in)
		checked++
		switch {
		case report == nil:
			w.logger.Warn("skipping invalid feed item", "input", in.Label(), "error", err)
			w.seen[fp] = struct{}{}
			continue
		case err != nil:
			w.logger.Warn("feed item check failed", "input", in.Label(), "error", err)
		default:
			w.seen[fp] = struct{}{}
			w.logger.Info("feed item checked", "input", in.Label(), "verdict", report.Verdict)
		}

		if w.onReport != nil {
			w.onReport(report)
		}
	}

	return checked, nil
}

// Run polls immediately and then on the schedule until ctx is cancelled.
// It waits for a running poll to finish before returning.
func (w *Watcher) Run(ctx context.Context) error {
	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() {
		w.poll(ctx)
	}))

	w.logger.Info("watching feed", "feed", w.feedURL, "schedule", w.spec)
	w.poll(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	return nil
}

func (w *Watcher) poll(ctx context.Context) {
	n, err := w.Poll(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger.Error("feed poll failed", "feed", w.feedURL, "error", err)
		return
	}
	w.logger.Debug("feed poll finished", "feed", w.feedURL, "checked", n)
}

// Seen returns the number of items marked as seen.
func (w *Watcher) Seen() int {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()
	return len(w.seen)
}
