package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/satyagyan/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report in Markdown format.
func (w *MarkdownWriter) Write(report *model.FactCheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeResult(md, report)
	w.writeStages(md, report)
	w.writeSources(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs an overview of many reports: the verdict
// distribution as a pie chart and one table row per check.
func (w *MarkdownWriter) WriteSummary(reports []*model.FactCheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("SatyaGyan Batch Summary")
	md.PlainText("")

	counts := make(map[model.Verdict]int, len(model.AllVerdicts))
	failed := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.HasError() || r.TimedOut {
			failed++
		}
		counts[r.Verdict]++
	}

	rows := make([][]string, 0, len(model.AllVerdicts)+1)
	for _, v := range model.AllVerdicts {
		rows = append(rows, []string{v.Label(), fmt.Sprint(counts[v])})
	}
	rows = append(rows, []string{"**Total**", fmt.Sprintf("**%d**", len(reports))})
	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(reports) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Verdict Distribution"),
			piechart.WithShowData(true),
		)
		for _, v := range model.AllVerdicts {
			if counts[v] > 0 {
				chart.LabelAndIntValue(v.Label(), uint64(counts[v]))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if failed > 0 {
		md.Warningf("%d of %d check(s) did not complete. Their verdicts reflect partial results.", failed, len(reports))
		md.PlainText("")
	}

	md.H2("Results")
	md.PlainText("")
	results := make([][]string, 0, len(reports))
	for i, r := range reports {
		if r == nil {
			continue
		}
		results = append(results, []string{
			fmt.Sprint(i + 1),
			cell(r.Input.Label(), 60),
			r.Verdict.Label(),
			r.Status(),
			"`" + r.ID + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Input", "Verdict", "Status", "ID"},
		Rows:   results,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with check information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.FactCheckReport) {
	md.H1("SatyaGyan Fact-Check Report")
	md.PlainText("")

	rows := [][]string{
		{"Input Type", report.Input.Kind.String()},
		{"Input", cell(report.Input.Label(), 80)},
	}
	if report.ContentTitle != "" {
		rows = append(rows, []string{"Title", cell(report.ContentTitle, 80)})
	}
	rows = append(rows,
		[]string{"Checked", report.CheckedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Verdict", "**" + report.Verdict.Label() + "**"},
	)
	if report.Verification != nil && report.Verification.Confidence != "" {
		rows = append(rows, []string{"Confidence", report.Verification.Confidence})
	}
	if report.Model != "" {
		rows = append(rows, []string{"Model", "`" + report.Model + "`"})
	}
	rows = append(rows,
		[]string{"Duration", report.Duration.Round(time.Millisecond).String()},
		[]string{"Status", w.getStatusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.FactCheckReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out (partial results)"
	case report.HasError():
		return "❌ Error - " + cell(report.ErrorMessage, 80)
	case report.Cached:
		return "♻️ Complete (from history)"
	default:
		return "✅ Complete"
	}
}

// writeAlert writes an alert matching the verdict.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.FactCheckReport) {
	banner := report.Verdict.Banner()
	switch report.Verdict {
	case model.VerdictTrue:
		md.Tip(banner)
	case model.VerdictFalse:
		md.Cautionf("%s", banner)
	case model.VerdictPartiallyAccurate:
		md.Warningf("%s", banner)
	case model.VerdictInconclusive:
		md.Importantf("%s", banner)
	default:
		md.Note(banner)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResult(md *markdown.Markdown, report *model.FactCheckReport) {
	md.H2("Comprehensive Analysis Report")
	md.PlainText("")
	if report.Result == "" {
		md.PlainText("No verification result was produced.")
	} else {
		md.PlainText(strings.TrimSpace(report.Result))
	}
	md.PlainText("")
}

// writeStages writes each earlier stage as a collapsible section.
func (w *MarkdownWriter) writeStages(md *markdown.Markdown, report *model.FactCheckReport) {
	if report.Research == nil && report.Analysis == "" && report.Content == "" {
		return
	}

	md.H2("Pipeline Stages")
	md.PlainText("")

	if report.Content != "" {
		md.Details("Extracted content", model.Truncate(report.Content, 2000))
	}
	if report.Research != nil {
		findings := strings.TrimSpace(report.Research.Findings)
		if len(report.Research.Queries) > 0 {
			findings = "Searches: " + strings.Join(report.Research.Queries, "; ") + "\n\n" + findings
		}
		md.Details("Research findings", findings)
	}
	if report.Analysis != "" {
		md.Details("Content analysis", strings.TrimSpace(report.Analysis))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, report *model.FactCheckReport) {
	md.H2("Sources")
	md.PlainText("")

	if len(report.Sources) == 0 {
		md.PlainText("No external sources were cited.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Sources))
	for i, s := range report.Sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		snippet := s.Snippet
		if snippet == "" {
			snippet = "-"
		}
		rows[i] = []string{
			fmt.Sprint(i + 1),
			fmt.Sprintf("[%s](%s)", cell(title, 60), s.URL),
			cell(snippet, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Source", "Excerpt"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [SatyaGyan](https://github.com/nao1215/satyagyan)*")
}

// cell makes s safe for a single table cell: one line, no pipes, and at
// most maxLen runes.
func cell(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return model.Truncate(s, maxLen)
}
