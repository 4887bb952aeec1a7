package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show, download or delete stored fact checks",
		Long: `History works with the checks stored in the history database.

Without flags it lists the most recent checks. The database is SQLite in
the XDG data directory, or PostgreSQL when DATABASE_URL is set.

Examples:
  # List the last 20 checks
  satyagyan history

  # List false claims only
  satyagyan history --verdict false --limit 50

  # Show one check
  satyagyan history --id 4f2c...

  # Save one check as satyagyan_professional_report.txt
  satyagyan history --id 4f2c... --download

  # Count checks per verdict
  satyagyan history --stats`,
		RunE: runHistory,
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Path to config file")
	flags.String("db-dir", "", "Directory of the SQLite history database (default: XDG data directory)")
	flags.String("id", "", "Show the check with this ID")
	flags.Bool("download", false, "Save the check given by --id as a text report file")
	flags.Bool("delete", false, "Delete the check given by --id")
	flags.Bool("stats", false, "Show the number of checks per verdict")
	flags.Int("limit", database.DefaultListLimit, "Maximum number of checks to list")
	flags.String("verdict", "", "List only checks with this verdict")
	flags.BoolP("json", "j", false, "Output in JSON format")
	flags.BoolP("markdown", "m", false, "Output the check in Markdown format")
	flags.StringP("output", "o", "", "Write output to file instead of stdout")

	return cmd
}

// runHistory executes the history command.
func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	flags := cmd.Flags()
	id := stringFlag(flags, "id")
	download, _ := flags.GetBool("download")
	del, _ := flags.GetBool("delete")
	stats, _ := flags.GetBool("stats")

	if (download || del) && id == "" {
		return errors.New("--download and --delete require --id")
	}

	store, err := database.OpenStore(cmd.Context(), cfg.DatabaseURL, cfg.DBDir)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	switch {
	case del:
		if err := store.DeleteCheck(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted check %s\n", id)
		return nil

	case id != "":
		r, err := store.GetCheck(cmd.Context(), id)
		if err != nil {
			return err
		}
		if download {
			if cfg.ReportFile == "" {
				cfg.ReportFile = report.DownloadFileName
			}
			cfg.JSONReport, cfg.MarkdownReport = false, false
			w, closeFn, err := openOutput(cfg, out)
			if err != nil {
				return err
			}
			if _, err := report.NewSimpleWriter(w, report.WithVerbose(true)).Write(r); err != nil {
				_ = closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Report saved to %s\n", cfg.ReportFile)
			return nil
		}
		return writeReport(cfg, out, r)

	case stats:
		counts, err := store.VerdictCounts(cmd.Context())
		if err != nil {
			return err
		}
		return writeVerdictCounts(out, counts)

	default:
		opts := database.ListOptions{}
		opts.Limit, _ = flags.GetInt("limit")
		if v := stringFlag(flags, "verdict"); v != "" {
			if opts.Verdict, err = model.ParseVerdict(v); err != nil {
				return err
			}
		}
		checks, err := store.ListChecks(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if cfg.JSONReport {
			return writeJSONValue(out, checks)
		}
		return writeCheckList(out, checks)
	}
}

// writeCheckList prints history rows as an aligned table.
func writeCheckList(w io.Writer, checks []database.CheckSummary) error {
	if len(checks) == 0 {
		_, err := fmt.Fprintln(w, "No checks found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHECKED\tTYPE\tVERDICT\tINPUT")
	for _, c := range checks {
		verdict := string(c.Verdict)
		if c.ErrorMessage != "" {
			verdict += " (error)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.CheckedAt.Local().Format("2006-01-02 15:04"),
			c.Kind,
			verdict,
			model.Truncate(c.Label, 60),
		)
	}
	return tw.Flush()
}

// writeVerdictCounts prints the number of stored checks per verdict.
func writeVerdictCounts(w io.Writer, counts map[model.Verdict]int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	total := 0
	for _, v := range model.AllVerdicts {
		fmt.Fprintf(tw, "%s\t%d\n", v.Label(), counts[v])
		total += counts[v]
	}
	fmt.Fprintf(tw, "Total\t%d\n", total)
	return tw.Flush()
}
