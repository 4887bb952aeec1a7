package model

import (
	"time"

	"github.com/google/uuid"
)

// FactCheckReport is the main result structure.
// It accumulates everything produced while an input moves through the
// pipeline: the extracted content, each stage's output, and the verdict.
type FactCheckReport struct {
	// === Basic Information ===

	// ID uniquely identifies the check. It is also the database key.
	ID string `json:"id"`

	// Input is what the user submitted.
	Input Input `json:"input"`

	// Fingerprint is Input.Fingerprint(), stored for cache lookups.
	Fingerprint string `json:"fingerprint"`

	// CheckedAt is when the check started.
	CheckedAt time.Time `json:"checked_at"`

	// Duration is how long the pipeline took.
	Duration time.Duration `json:"duration"`

	// Model is the LLM model that produced the stage outputs.
	Model string `json:"model,omitempty"`

	// === Extracted Content ===

	// ContentTitle is the page title, video title or file name, if known.
	ContentTitle string `json:"content_title,omitempty"`

	// Content is the text the research, analysis and verification
	// stages examined.
	Content string `json:"content,omitempty"`

	// === Stage Outputs ===

	// Research holds the research stage output.
	Research *ResearchResult `json:"research,omitempty"`

	// Analysis is the content analyzer's report.
	Analysis string `json:"analysis,omitempty"`

	// Verification holds the fact verifier's output.
	Verification *VerificationResult `json:"verification,omitempty"`

	// Result is the final result text that the verdict is derived from.
	Result string `json:"result"`

	// Verdict is ClassifyVerdict(Result), set by Finalize.
	Verdict Verdict `json:"verdict"`

	// Sources are the web sources gathered while researching.
	Sources []Source `json:"sources,omitempty"`

	// === Check State ===

	// Cached is true when this report was served from history instead of
	// running the pipeline again.
	Cached bool `json:"cached,omitempty"`

	// TimedOut is true if the check was cancelled before completing.
	TimedOut bool `json:"timed_out"`

	// PerformedStages lists the pipeline steps that ran, in order.
	PerformedStages []string `json:"performed_stages,omitempty"`

	// Error contains the error of the last failed step.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// ResearchResult is the output of the research stage.
type ResearchResult struct {
	// Queries are the web searches that were run.
	Queries []string `json:"queries,omitempty"`

	// Findings is the researcher's written summary of the evidence.
	Findings string `json:"findings"`
}

// VerificationResult is the output of the verification stage.
type VerificationResult struct {
	// Text is the verifier's full written report.
	Text string `json:"text"`

	// Confidence is the stated confidence level (HIGH, MEDIUM or LOW).
	// Empty when the verifier did not state one.
	Confidence string `json:"confidence,omitempty"`
}

// Source is a piece of external evidence.
type Source struct {
	// Title is the page or result title.
	Title string `json:"title"`

	// URL is the address of the source.
	URL string `json:"url"`

	// Snippet is a short excerpt supporting the result.
	Snippet string `json:"snippet,omitempty"`
}

// NewFactCheckReport creates a new report for the given input.
func NewFactCheckReport(input Input) *FactCheckReport {
	return &FactCheckReport{
		ID:          uuid.NewString(),
		Input:       input,
		Fingerprint: input.Fingerprint(),
		CheckedAt:   time.Now(),
		Verdict:     VerdictDetailedAnalysis,
	}
}

// AddSource appends a source unless one with the same URL is already present.
// Sources without a URL are ignored.
func (r *FactCheckReport) AddSource(source Source) {
	if source.URL == "" {
		return
	}
	for _, s := range r.Sources {
		if s.URL == source.URL {
			return
		}
	}
	r.Sources = append(r.Sources, source)
}

// Finalize derives the verdict from the result text.
// If no result was produced, the verifier's text is used instead.
func (r *FactCheckReport) Finalize() {
	if r.Result == "" && r.Verification != nil {
		r.Result = r.Verification.Text
	}
	r.Verdict = ClassifyVerdict(r.Result)
}

// SetError records a failure on the report.
func (r *FactCheckReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	} else {
		r.ErrorMessage = ""
	}
}

// HasError reports whether any step failed.
func (r *FactCheckReport) HasError() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// Completed reports whether the verification stage produced a result.
func (r *FactCheckReport) Completed() bool {
	return r.Result != "" && !r.TimedOut
}

// Status returns a short status word for listings.
func (r *FactCheckReport) Status() string {
	switch {
	case r.TimedOut:
		return "timed out"
	case r.HasError():
		return "error"
	case r.Cached:
		return "cached"
	default:
		return "complete"
	}
}
