package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/satyagyan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.FactCheckReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.FactCheckReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestReport() *model.FactCheckReport {
	return model.NewFactCheckReport(model.NewTextInput("The Eiffel Tower is in Berlin."))
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if n := len(p.StepNames()); n != 0 {
			t.Errorf("expected 0 steps, got %d", n)
		}
		if p.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddSteps(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "step-1"}, &mockStep{name: "step-2"}, &mockStep{name: "step-3"})

		if n := len(p.StepNames()); n != 3 {
			t.Errorf("expected 3 steps, got %d", n)
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		want := []string{"first", "second", "third"}
		if got := p.StepNames(); !slices.Equal(got, want) {
			t.Errorf("StepNames() = %v, want %v", got, want)
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.FactCheckReport) error {
					order = append(order, name)
					return nil
				},
			}
		}

		p := New()
		p.AddSteps(record("extract"), record("research"), record("analysis"), record("verification"))

		report := newTestReport()
		if err := p.Execute(t.Context(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"extract", "research", "analysis", "verification"}
		if !slices.Equal(order, want) {
			t.Errorf("execution order = %v, want %v", order, want)
		}
		if !slices.Equal(report.PerformedStages, want) {
			t.Errorf("PerformedStages = %v, want %v", report.PerformedStages, want)
		}
	})

	t.Run("later steps see earlier output", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "research", doFunc: func(_ context.Context, r *model.FactCheckReport) error {
				r.Research = &model.ResearchResult{Findings: "the tower is in Paris"}
				return nil
			}},
			&mockStep{name: "verification", doFunc: func(_ context.Context, r *model.FactCheckReport) error {
				if r.Research == nil {
					return errors.New("research missing")
				}
				r.Result = "The claim is false. VERDICT: FALSE"
				return nil
			}},
		)

		report := newTestReport()
		if err := p.Execute(t.Context(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Verdict != model.VerdictFalse {
			t.Errorf("expected FALSE verdict after finalize, got %s", report.Verdict)
		}
		if report.Duration <= 0 {
			t.Error("expected duration to be recorded")
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("research failed")
		last := &mockStep{name: "verification"}

		p := New()
		p.AddSteps(
			&mockStep{name: "extract"},
			&mockStep{name: "research", doFunc: func(_ context.Context, _ *model.FactCheckReport) error {
				return stepErr
			}},
			last,
		)

		report := newTestReport()
		err := p.Execute(t.Context(), report)

		if !errors.Is(err, stepErr) {
			t.Fatalf("expected step error, got %v", err)
		}
		if last.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if report.ErrorMessage != "research failed" || !report.HasError() {
			t.Errorf("expected error recorded in report, got %q", report.ErrorMessage)
		}
		if !slices.Equal(report.PerformedStages, []string{"extract"}) {
			t.Errorf("PerformedStages = %v", report.PerformedStages)
		}
		if report.Verdict != model.VerdictDetailedAnalysis {
			t.Errorf("expected DETAILED_ANALYSIS without a result, got %s", report.Verdict)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		last := &mockStep{name: "verification"}

		p := New(WithContinueOnError(true))
		p.AddSteps(
			&mockStep{name: "research", doFunc: func(_ context.Context, _ *model.FactCheckReport) error {
				return errors.New("search quota exceeded")
			}},
			last,
		)

		report := newTestReport()
		if err := p.Execute(t.Context(), report); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if last.callCount != 1 {
			t.Error("expected later step to run")
		}
		if !report.HasError() {
			t.Error("expected error to be recorded")
		}
		if len(report.PerformedStages) != 2 {
			t.Errorf("expected both stages recorded, got %v", report.PerformedStages)
		}
	})

	t.Run("respects cancellation before each step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(
			&mockStep{name: "first", doFunc: func(_ context.Context, _ *model.FactCheckReport) error {
				cancel()
				return nil
			}},
			second,
		)

		report := newTestReport()
		err := p.Execute(ctx, report)

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if !report.TimedOut {
			t.Error("expected TimedOut to be set")
		}
	})

	t.Run("reports progress milestones", func(t *testing.T) {
		t.Parallel()

		var (
			mu     sync.Mutex
			stages []model.Stage
		)
		p := New(WithProgress(func(s model.Stage) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, s)
		}))
		p.AddSteps(&mockStep{name: "extract"}, &mockStep{name: "research"})

		if err := p.Execute(t.Context(), newTestReport()); err != nil {
			t.Fatal(err)
		}

		want := []model.Stage{model.StageInitializing, model.StageLoading, model.StageExecuting, model.StageComplete}
		if !slices.Equal(stages, want) {
			t.Errorf("stages = %v, want %v", stages, want)
		}
	})

	t.Run("no completion milestone after a failure", func(t *testing.T) {
		t.Parallel()

		var stages []model.Stage
		p := New(WithProgress(func(s model.Stage) { stages = append(stages, s) }))
		p.AddSteps(&mockStep{name: "extract", doFunc: func(_ context.Context, _ *model.FactCheckReport) error {
			return errors.New("boom")
		}})

		_ = p.Execute(t.Context(), newTestReport())

		if slices.Contains(stages, model.StageComplete) {
			t.Errorf("did not expect completion, got %v", stages)
		}
	})
}
