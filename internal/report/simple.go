package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/satyagyan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs the plain-text report. The same text is shown in
// the terminal and offered as DownloadFileName.
type SimpleWriter struct {
	baseWriter

	// verbose adds the research and analysis stages before the result.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose includes the research findings and content analysis.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.FactCheckReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeVerdict(&sb, report)
	if w.verbose {
		w.writeStages(&sb, report)
	}
	w.writeResult(&sb, report)
	w.writeSources(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with check information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.FactCheckReport) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                 SATYAGYAN FACT VERIFICATION REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Report ID:   %s\n", report.ID)
	fmt.Fprintf(sb, "Checked:     %s\n", report.CheckedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Input Type:  %s\n", report.Input.Kind)
	fmt.Fprintf(sb, "Input:       %s\n", report.Input.Label())
	if report.ContentTitle != "" && report.ContentTitle != report.Input.Label() {
		fmt.Fprintf(sb, "Title:       %s\n", report.ContentTitle)
	}
	if report.Model != "" {
		fmt.Fprintf(sb, "Model:       %s\n", report.Model)
	}
	if report.Verification != nil && report.Verification.Confidence != "" {
		fmt.Fprintf(sb, "Confidence:  %s\n", report.Verification.Confidence)
	}
	fmt.Fprintf(sb, "Status:      %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVerdict(sb *strings.Builder, report *model.FactCheckReport) {
	sb.WriteString(report.Verdict.Banner())
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeStages(sb *strings.Builder, report *model.FactCheckReport) {
	if report.Research != nil && report.Research.Findings != "" {
		section(sb, "RESEARCH FINDINGS")
		if len(report.Research.Queries) > 0 {
			sb.WriteString("Searches:\n")
			for _, q := range report.Research.Queries {
				fmt.Fprintf(sb, "  - %s\n", q)
			}
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(report.Research.Findings))
		sb.WriteString("\n\n")
	}
	if report.Analysis != "" {
		section(sb, "CONTENT ANALYSIS")
		sb.WriteString(strings.TrimSpace(report.Analysis))
		sb.WriteString("\n\n")
	}
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, report *model.FactCheckReport) {
	section(sb, "VERIFICATION REPORT")
	if report.Result == "" {
		sb.WriteString("No verification result was produced.\n\n")
		return
	}
	sb.WriteString(strings.TrimSpace(report.Result))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSources(sb *strings.Builder, report *model.FactCheckReport) {
	if len(report.Sources) == 0 {
		return
	}
	section(sb, "SOURCES")
	for i, s := range report.Sources {
		fmt.Fprintf(sb, "  [%d] %s\n      %s\n", i+1, s.Title, s.URL)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by SatyaGyan\n")
	sb.WriteString("https://github.com/nao1215/satyagyan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
