package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/feed"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/report"
)

// errNoBatchSource is returned when batch has neither --list nor --feed.
var errNoBatchSource = errors.New("pass --list or --feed")

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Fact-check many inputs concurrently",
		Long: `Batch checks every input of a list file or an RSS/Atom feed.

A list file holds one input per line. Lines that are YouTube links become
video checks, other http(s) links become web page checks, and anything
else is checked as a claim. Blank lines and lines starting with # are
skipped.

Feed items are checked through their link, or through their title and
summary when they have none.

Examples:
  # Check every claim in a file, four at a time
  satyagyan batch --list claims.txt

  # Check the latest items of a news feed and write a Markdown summary
  satyagyan batch --feed https://example.com/rss -m -o summary.md

  # JSON array of reports
  satyagyan batch --list claims.txt --json`,
		RunE: runBatch,
	}

	addEngineFlags(cmd)
	flags := cmd.Flags()
	flags.StringP("list", "l", "", "File with one input per line")
	flags.String("feed", "", "RSS or Atom feed URL or file")
	flags.Int("max-items", feed.DefaultMaxItems, "Maximum feed items to check")
	flags.IntP("batch", "b", config.DefaultBatchSize, "Number of checks to run concurrently")
	flags.BoolP("json", "j", false, "Output reports as a JSON array")
	flags.BoolP("markdown", "m", false, "Output a Markdown summary followed by every report")
	flags.StringP("output", "o", "", "Write output to file instead of stdout")

	return cmd
}

// runBatch executes the batch command.
func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)

	// Feeds are loaded through the app's client so they honor --tor and
	// --proxy like every other fetch.
	a, err := newApp(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	inputs, err := batchInputs(cmd, cfg, a.httpClient)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No inputs to check.")
		return nil
	}

	logger.Info("starting batch", "inputs", len(inputs), "concurrency", cfg.BatchSize)

	var (
		mu   sync.Mutex
		done int
	)
	stderr := cmd.ErrOrStderr()
	reports, checkErr := a.checker.CheckMany(cmd.Context(), inputs, func(r *model.FactCheckReport, _ int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		fmt.Fprintf(stderr, "[%d/%d] %s: %s\n", done, len(inputs), r.Verdict.Label(), r.Input.Label())
	})
	return finishBatch(cfg, cmd.OutOrStdout(), reports, checkErr)
}

// finishBatch writes the reports and returns checkErr. Reports are written
// even when the batch was interrupted, so finished checks are not lost;
// unstarted inputs show up as timed out.
func finishBatch(cfg *config.Config, stdout io.Writer, reports []*model.FactCheckReport, checkErr error) error {
	w, closeFn, err := openOutput(cfg, stdout)
	if err != nil {
		return errors.Join(checkErr, err)
	}
	if err := writeBatch(cfg, w, reports); err != nil {
		_ = closeFn()
		return errors.Join(checkErr, err)
	}
	return errors.Join(checkErr, closeFn())
}

// batchInputs reads the inputs of the batch from --list or --feed. Feeds
// are fetched with client.
func batchInputs(cmd *cobra.Command, cfg *config.Config, client *http.Client) ([]model.Input, error) {
	flags := cmd.Flags()
	listPath := stringFlag(flags, "list")
	feedSource := stringFlag(flags, "feed")

	switch {
	case listPath != "" && feedSource != "":
		return nil, errors.New("pass only one of --list or --feed")
	case listPath != "":
		f, err := os.Open(listPath) //nolint:gosec // User-provided list path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open list: %w", err)
		}
		defer f.Close()
		return readList(f)
	case feedSource != "":
		maxItems, err := flags.GetInt("max-items")
		if err != nil {
			return nil, err
		}
		loader := feed.NewLoader(client,
			feed.WithUserAgent(cfg.UserAgent),
			feed.WithMaxItems(maxItems),
		)
		return loader.Load(cmd.Context(), feedSource)
	default:
		return nil, errNoBatchSource
	}
}

// readList parses one input per line, skipping blanks and # comments.
func readList(r io.Reader) ([]model.Input, error) {
	var inputs []model.Input
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, model.DetectInput(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	return inputs, nil
}

// writeBatch writes the batch results in the configured format.
func writeBatch(cfg *config.Config, w io.Writer, reports []*model.FactCheckReport) error {
	switch {
	case cfg.JSONReport:
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteAll(reports)
		return err
	case cfg.MarkdownReport:
		mw := report.NewMarkdownWriter(w)
		if _, err := mw.WriteSummary(reports); err != nil {
			return err
		}
		for _, r := range reports {
			if _, err := mw.Write(r); err != nil {
				return err
			}
		}
		return nil
	default:
		sw := report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
		for _, r := range reports {
			if _, err := sw.Write(r); err != nil {
				return err
			}
		}
		return writeTally(w, reports)
	}
}

// writeTally prints the number of reports per verdict.
func writeTally(w io.Writer, reports []*model.FactCheckReport) error {
	counts := make(map[model.Verdict]int)
	for _, r := range reports {
		counts[r.Verdict]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nChecked %d input(s):\n", len(reports))
	for _, v := range model.AllVerdicts {
		if counts[v] > 0 {
			fmt.Fprintf(&sb, "  %-22s %d\n", v.Label(), counts[v])
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
