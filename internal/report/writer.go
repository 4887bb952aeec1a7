package report

import (
	"io"

	"github.com/nao1215/satyagyan/internal/model"
)

// Download metadata for the plain-text report.
const (
	// DownloadFileName is the file name offered when a report is downloaded.
	DownloadFileName = "satyagyan_professional_report.txt"

	// DownloadMIMEType is the content type of the downloaded report.
	DownloadMIMEType = "text/plain"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.FactCheckReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.FactCheckReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how a check ended.
func statusText(report *model.FactCheckReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT (partial results)"
	case report.HasError():
		return "ERROR - " + report.ErrorMessage
	case report.Cached:
		return "Complete (from history)"
	default:
		return "Complete"
	}
}
