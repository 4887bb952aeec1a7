package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/report"
)

// openOutput returns the writer for reports: the file named by
// cfg.ReportFile, or stdout. The returned close function is never nil.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the report format from cfg.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// writeReport writes a single report in the configured format. When the
// report goes to a file, the plain-text report is also shown on stdout.
func writeReport(cfg *config.Config, stdout io.Writer, r *model.FactCheckReport) error {
	w, closeFn, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}

	var writer report.Writer = newReportWriter(cfg, w)
	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout))
	}

	if _, err := writer.Write(r); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.ReportFile != "" {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

// writeJSONValue writes v as indented JSON.
func writeJSONValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
