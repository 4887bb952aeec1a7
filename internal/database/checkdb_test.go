package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/satyagyan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CheckDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newReport(claim string, result string, checkedAt time.Time) *model.FactCheckReport {
	r := model.NewFactCheckReport(model.NewTextInput(claim))
	r.CheckedAt = checkedAt
	r.Result = result
	r.Finalize()
	return r
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		report := newReport("claim", "VERDICT: TRUE", time.Now())
		if err := db.SaveCheck(t.Context(), report); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()

		if _, err := db.GetCheck(t.Context(), report.ID); err != nil {
			t.Errorf("expected saved check after reopen, got %v", err)
		}
	})
}

func TestSaveAndGetCheck(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	report := newReport("The Moon is made of cheese.", "Evidence shows this is false.\nVERDICT: FALSE", time.Now().Truncate(time.Millisecond))
	report.Content = "The Moon is made of cheese."
	report.Research = &model.ResearchResult{Queries: []string{"moon composition"}, Findings: "rock"}
	report.Verification = &model.VerificationResult{Text: report.Result, Confidence: "HIGH"}
	report.AddSource(model.Source{Title: "NASA", URL: "https://nasa.gov/moon"})
	report.PerformedStages = []string{"extract", "research", "analysis", "verification"}

	if err := db.SaveCheck(ctx, report); err != nil {
		t.Fatalf("SaveCheck failed: %v", err)
	}

	got, err := db.GetCheck(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetCheck failed: %v", err)
	}

	if diff := cmp.Diff(report, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	t.Run("saving again replaces the row", func(t *testing.T) {
		report.Result = "VERDICT: INCONCLUSIVE"
		report.Finalize()
		if err := db.SaveCheck(ctx, report); err != nil {
			t.Fatal(err)
		}
		got, err := db.GetCheck(ctx, report.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Verdict != model.VerdictInconclusive {
			t.Errorf("Verdict = %s", got.Verdict)
		}
		list, err := db.ListChecks(ctx, ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 {
			t.Errorf("expected one row, got %d", len(list))
		}
	})

	t.Run("errors survive the round trip", func(t *testing.T) {
		failed := newReport("claim", "", time.Now())
		failed.SetError(errors.New("research failed: quota"))
		if err := db.SaveCheck(ctx, failed); err != nil {
			t.Fatal(err)
		}
		got, err := db.GetCheck(ctx, failed.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Error == nil || got.Error.Error() != "research failed: quota" {
			t.Errorf("Error = %v", got.Error)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		if _, err := db.GetCheck(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFindByFingerprint(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	now := time.Now()

	old := newReport("Water boils at 100C at sea level.", "VERDICT: TRUE", now.Add(-48*time.Hour))
	recent := newReport("Water boils at 100C at sea level.", "VERDICT: TRUE (confirmed)", now.Add(-time.Hour))
	failed := newReport("Water boils at 100C at sea level.", "", now.Add(-time.Minute))
	failed.SetError(errors.New("timeout"))
	other := newReport("Something else entirely.", "VERDICT: FALSE", now)

	for _, r := range []*model.FactCheckReport{old, recent, failed, other} {
		if err := db.SaveCheck(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("returns the newest successful report within max age", func(t *testing.T) {
		got, err := db.FindByFingerprint(ctx, recent.Fingerprint, 24*time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != recent.ID {
			t.Errorf("expected recent report, got %+v", got)
		}
	})

	t.Run("returns nil when everything is too old", func(t *testing.T) {
		got, err := db.FindByFingerprint(ctx, recent.Fingerprint, 30*time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("expected no report, got %s", got.ID)
		}
	})

	t.Run("returns nil for unknown fingerprint", func(t *testing.T) {
		got, err := db.FindByFingerprint(ctx, "unknown", time.Hour)
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
	})
}

func TestListChecksAndCounts(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	now := time.Now()

	reports := []*model.FactCheckReport{
		newReport("a", "VERDICT: TRUE", now.Add(-3*time.Minute)),
		newReport("b", "VERDICT: FALSE", now.Add(-2*time.Minute)),
		newReport("c", "VERDICT: FALSE", now.Add(-time.Minute)),
		newReport("d", "nothing decisive", now),
	}
	for _, r := range reports {
		if err := db.SaveCheck(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("newest first with limit", func(t *testing.T) {
		list, err := db.ListChecks(ctx, ListOptions{Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 checks, got %d", len(list))
		}
		if list[0].Label != "d" || list[1].Label != "c" {
			t.Errorf("unexpected order: %q, %q", list[0].Label, list[1].Label)
		}
		if list[0].Kind != model.InputText {
			t.Errorf("Kind = %q", list[0].Kind)
		}
		if list[0].CheckedAt.IsZero() {
			t.Error("expected CheckedAt to be parsed")
		}
	})

	t.Run("verdict filter", func(t *testing.T) {
		list, err := db.ListChecks(ctx, ListOptions{Verdict: model.VerdictFalse})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 {
			t.Errorf("expected 2 FALSE checks, got %d", len(list))
		}
		for _, s := range list {
			if s.Verdict != model.VerdictFalse {
				t.Errorf("unexpected verdict %s", s.Verdict)
			}
		}
	})

	t.Run("verdict counts", func(t *testing.T) {
		counts, err := db.VerdictCounts(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := map[model.Verdict]int{
			model.VerdictTrue:             1,
			model.VerdictFalse:            2,
			model.VerdictDetailedAnalysis: 1,
		}
		if diff := cmp.Diff(want, counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDeleteCheck(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	report := newReport("claim", "VERDICT: TRUE", time.Now())
	if err := db.SaveCheck(ctx, report); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteCheck(ctx, report.ID); err != nil {
		t.Fatalf("DeleteCheck failed: %v", err)
	}
	if _, err := db.GetCheck(ctx, report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := db.DeleteCheck(ctx, report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	got := rebind("SELECT * FROM checks WHERE id = ? AND verdict = ? LIMIT ?")
	want := "SELECT * FROM checks WHERE id = $1 AND verdict = $2 LIMIT $3"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"stored layout", "2026-03-04 05:06:07.123456", time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.UTC)},
		{"sqlite default", "2026-03-04 05:06:07", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"rfc3339", "2026-03-04T05:06:07Z", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{ts, "2026-01-01 00:00:00", []byte("2026-01-01T00:00:00Z")} {
		if got := timeValue(v); !got.Equal(ts) {
			t.Errorf("timeValue(%v) = %v", v, got)
		}
	}
	if !timeValue(nil).IsZero() {
		t.Error("expected zero time for nil")
	}
}

func TestPostgresStore(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("SATYAGYAN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SATYAGYAN_TEST_DATABASE_URL not set")
	}

	store, err := OpenPostgres(t.Context(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer store.Close()

	report := newReport("postgres round trip", "VERDICT: TRUE", time.Now())
	if err := store.SaveCheck(t.Context(), report); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.DeleteCheck(t.Context(), report.ID) }()

	got, err := store.FindByFingerprint(t.Context(), report.Fingerprint, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != report.ID {
		t.Errorf("expected to find the saved report, got %+v", got)
	}
}
