package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/report"
)

// seedHistory stores two checks in a SQLite database in a new directory.
func seedHistory(t *testing.T) (dir string, ids []string) {
	t.Helper()

	dir = t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, result := range []string{"VERDICT: TRUE", "VERDICT: FALSE"} {
		r := model.NewFactCheckReport(model.NewTextInput("claim " + result))
		r.Result = result
		r.Finalize()
		if err := db.SaveCheck(t.Context(), r); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID)
	}
	return dir, ids
}

func runHistoryCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewHistoryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryCmd(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")

	t.Run("lists checks", func(t *testing.T) {
		dir, ids := seedHistory(t)

		out, err := runHistoryCmd(t, "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, id := range ids {
			if !strings.Contains(out, id) {
				t.Errorf("expected %s in listing:\n%s", id, out)
			}
		}
	})

	t.Run("filters by verdict", func(t *testing.T) {
		dir, ids := seedHistory(t)

		out, err := runHistoryCmd(t, "--db-dir", dir, "--verdict", "false")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, ids[0]) || !strings.Contains(out, ids[1]) {
			t.Errorf("expected only the FALSE check:\n%s", out)
		}
	})

	t.Run("rejects unknown verdict", func(t *testing.T) {
		dir, _ := seedHistory(t)

		if _, err := runHistoryCmd(t, "--db-dir", dir, "--verdict", "maybe"); err == nil {
			t.Error("expected error for unknown verdict")
		}
	})

	t.Run("shows one check", func(t *testing.T) {
		dir, ids := seedHistory(t)

		out, err := runHistoryCmd(t, "--db-dir", dir, "--id", ids[1])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, model.VerdictFalse.Banner()) {
			t.Errorf("expected FALSE banner:\n%s", out)
		}
	})

	t.Run("downloads a report file", func(t *testing.T) {
		dir, ids := seedHistory(t)
		target := filepath.Join(t.TempDir(), report.DownloadFileName)

		if _, err := runHistoryCmd(t, "--db-dir", dir, "--id", ids[0], "--download", "-o", target); err != nil {
			t.Fatal(err)
		}
		content, err := os.ReadFile(target) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(content), "SATYAGYAN FACT VERIFICATION REPORT") {
			t.Error("expected the plain-text report")
		}
	})

	t.Run("deletes a check", func(t *testing.T) {
		dir, ids := seedHistory(t)

		if _, err := runHistoryCmd(t, "--db-dir", dir, "--id", ids[0], "--delete"); err != nil {
			t.Fatal(err)
		}
		if _, err := runHistoryCmd(t, "--db-dir", dir, "--id", ids[0]); err == nil {
			t.Error("expected the deleted check to be gone")
		}
	})

	t.Run("delete requires an id", func(t *testing.T) {
		dir, _ := seedHistory(t)

		if _, err := runHistoryCmd(t, "--db-dir", dir, "--delete"); err == nil {
			t.Error("expected error without --id")
		}
	})

	t.Run("stats", func(t *testing.T) {
		dir, _ := seedHistory(t)

		out, err := runHistoryCmd(t, "--db-dir", dir, "--stats")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Total") || !strings.Contains(out, "2") {
			t.Errorf("unexpected stats:\n%s", out)
		}
	})
}

func TestWriteCheckList(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := writeCheckList(&buf, nil); err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(buf.String()) != "No checks found." {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("marks failed checks and truncates labels", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := writeCheckList(&buf, []database.CheckSummary{{
			ID:           "abc",
			Kind:         model.InputText,
			Label:        strings.Repeat("x", 100),
			Verdict:      model.VerdictDetailedAnalysis,
			CheckedAt:    time.Now(),
			ErrorMessage: "boom",
		}})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "(error)") {
			t.Error("expected error marker")
		}
		if strings.Contains(buf.String(), strings.Repeat("x", 61)) {
			t.Error("expected label to be truncated")
		}
	})
}
