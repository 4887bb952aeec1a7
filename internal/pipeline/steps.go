package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/fetch"
	"github.com/nao1215/satyagyan/internal/llm"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/search"
)

// Step names, as recorded in FactCheckReport.PerformedStages.
const (
	StepExtract      = "extract"
	StepResearch     = "research"
	StepAnalysis     = "analysis"
	StepVerification = "verification"
)

// PageFetcher returns the readable content of a web page.
// *fetch.Scraper implements it.
type PageFetcher interface {
	Scrape(ctx context.Context, url string) (*fetch.Page, error)
}

// TranscriptFetcher returns the transcript of a YouTube video.
// *fetch.TranscriptFetcher implements it.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*fetch.Transcript, error)
}

// ExtractStep resolves the text that the later steps examine.
// Claims and documents are used as submitted; web pages and videos are
// fetched here, before any model sees them.
type ExtractStep struct {
	pages       PageFetcher
	transcripts TranscriptFetcher
	maxChars    int
	logger      *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractMaxChars limits the content kept for the model.
func WithExtractMaxChars(n int) ExtractStepOption {
	return func(s *ExtractStep) {
		s.maxChars = n
	}
}

// WithExtractLogger sets a custom logger for the extract step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewExtractStep creates the extract step. Either fetcher may be nil, in
// which case inputs of that kind fail with ErrNoFetcher.
func NewExtractStep(pages PageFetcher, transcripts TranscriptFetcher, opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		pages:       pages,
		transcripts: transcripts,
		maxChars:    config.DefaultMaxContentChars,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do executes the extract step.
func (s *ExtractStep) Do(ctx context.Context, report *model.FactCheckReport) error {
	in := report.Input

	switch in.Kind {
	case model.InputURL:
		if s.pages == nil {
			return fmt.Errorf("%w: %s", ErrNoFetcher, in.Kind)
		}
		page, err := s.pages.Scrape(ctx, in.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", in.URL, err)
		}
		report.ContentTitle = page.Title
		report.Content = page.Content()
		s.logger.Debug("fetched page", "url", in.URL, "title", page.Title, "rendered", page.Rendered, "truncated", page.Truncated)

	case model.InputYouTube:
		if s.transcripts == nil {
			return fmt.Errorf("%w: %s", ErrNoFetcher, in.Kind)
		}
		tr, err := s.transcripts.Fetch(ctx, in.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch transcript for %s: %w", in.URL, err)
		}
		report.ContentTitle = tr.Title
		report.Content = tr.Content()
		s.logger.Debug("fetched transcript", "video", tr.VideoID, "language", tr.Language, "fallback", tr.Fallback)

	case model.InputDocument:
		report.ContentTitle = in.FileName
		report.Content = in.Content

	default:
		report.Content = in.Text
	}

	report.Content = strings.TrimSpace(report.Content)
	if report.Content == "" {
		return ErrNoContent
	}
	report.Content, _ = fetch.Truncate(report.Content, s.maxChars)
	return nil
}

// ResearchStep gathers evidence about the content.
// When a searcher is configured the model first plans search queries,
// the searches run, and the results are handed to the researcher prompt.
// Without a searcher the researcher works from its own knowledge.
type ResearchStep struct {
	client        llm.Client
	searcher      search.Searcher
	maxQueries    int
	searchResults int
	now           func() time.Time
	logger        *slog.Logger
}

// ResearchStepOption configures a ResearchStep.
type ResearchStepOption func(*ResearchStep)

// WithMaxQueries sets how many search queries may run.
func WithMaxQueries(n int) ResearchStepOption {
	return func(s *ResearchStep) {
		if n > 0 {
			s.maxQueries = n
		}
	}
}

// WithSearchResults sets how many results each query keeps.
func WithSearchResults(n int) ResearchStepOption {
	return func(s *ResearchStep) {
		if n > 0 {
			s.searchResults = n
		}
	}
}

// WithResearchLogger sets a custom logger for the research step.
func WithResearchLogger(logger *slog.Logger) ResearchStepOption {
	return func(s *ResearchStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewResearchStep creates the research step. searcher may be nil.
func NewResearchStep(client llm.Client, searcher search.Searcher, opts ...ResearchStepOption) *ResearchStep {
	s := &ResearchStep{
		client:        client,
		searcher:      searcher,
		maxQueries:    config.DefaultMaxQueries,
		searchResults: config.DefaultSearchResults,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ResearchStep) Name() string {
	return StepResearch
}

// Do executes the research step.
func (s *ResearchStep) Do(ctx context.Context, report *model.FactCheckReport) error {
	setModel(report, s.client)

	data := baseData(report)
	data.MaxQueries = s.maxQueries
	data.Today = s.now().Format("January 2, 2006")

	result := &model.ResearchResult{}

	var found []model.Source
	if s.searcher != nil {
		result.Queries = s.planQueries(ctx, data, report)
		for _, q := range result.Queries {
			sources, err := s.searcher.Search(ctx, q, s.searchResults)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("search failed", "query", q, "error", err)
				continue
			}
			for _, src := range sources {
				report.AddSource(src)
			}
			found = append(found, sources...)
		}
	}
	data.SearchResults = search.FormatResults(dedupe(found))

	prompt, err := renderPrompt(promptResearch, data)
	if err != nil {
		return err
	}
	findings, err := s.client.Complete(ctx, llm.Request{System: researcherRole, Prompt: prompt})
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	result.Findings = findings
	report.Research = result
	return nil
}

// planQueries asks the model for search queries. A reply that cannot be
// decoded falls back to searching the content itself.
func (s *ResearchStep) planQueries(ctx context.Context, data promptData, report *model.FactCheckReport) []string {
	fallback := []string{model.Truncate(strings.Join(strings.Fields(searchSeed(report)), " "), 200)}

	prompt, err := renderPrompt(promptQueries, data)
	if err != nil {
		return fallback
	}
	reply, err := s.client.Complete(ctx, llm.Request{System: researcherRole, Prompt: prompt, JSON: true})
	if err != nil {
		s.logger.Warn("query planning failed", "error", err)
		return fallback
	}

	var plan struct {
		Queries []string `json:"queries"`
	}
	if err := llm.DecodeJSON(reply, &plan); err != nil {
		s.logger.Warn("query plan was not valid JSON", "error", err)
		return fallback
	}

	queries := make([]string, 0, s.maxQueries)
	for _, q := range plan.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
		if len(queries) == s.maxQueries {
			break
		}
	}
	if len(queries) == 0 {
		return fallback
	}
	return queries
}

// searchSeed is what to search for when no plan is available: the page or
// video title when there is one, otherwise the start of the content.
func searchSeed(report *model.FactCheckReport) string {
	if report.ContentTitle != "" && report.Input.Kind != model.InputDocument {
		return report.ContentTitle
	}
	return report.Content
}

func dedupe(sources []model.Source) []model.Source {
	seen := make(map[string]bool, len(sources))
	out := make([]model.Source, 0, len(sources))
	for _, s := range sources {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}

// AnalysisStep examines the content with the research findings as context.
type AnalysisStep struct {
	client llm.Client
}

// NewAnalysisStep creates the analysis step.
func NewAnalysisStep(client llm.Client) *AnalysisStep {
	return &AnalysisStep{client: client}
}

// Name returns the step name.
func (s *AnalysisStep) Name() string {
	return StepAnalysis
}

// Do executes the analysis step.
func (s *AnalysisStep) Do(ctx context.Context, report *model.FactCheckReport) error {
	setModel(report, s.client)

	prompt, err := renderPrompt(promptAnalysis, baseData(report))
	if err != nil {
		return err
	}
	analysis, err := s.client.Complete(ctx, llm.Request{System: analyzerRole, Prompt: prompt})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	report.Analysis = analysis
	return nil
}

var (
	confidencePattern = regexp.MustCompile(`(?i)confidence(?:\s+level)?\s*[:\-]?[\s*_]*(HIGH|MEDIUM|LOW)\b`)
	urlPattern        = regexp.MustCompile(`https?://[^\s<>()\[\]"'*]+`)
)

// VerificationStep weighs the research and analysis and writes the final
// result text, which ends with the verdict line.
type VerificationStep struct {
	client llm.Client
}

// NewVerificationStep creates the verification step.
func NewVerificationStep(client llm.Client) *VerificationStep {
	return &VerificationStep{client: client}
}

// Name returns the step name.
func (s *VerificationStep) Name() string {
	return StepVerification
}

// Do executes the verification step.
func (s *VerificationStep) Do(ctx context.Context, report *model.FactCheckReport) error {
	setModel(report, s.client)

	data := baseData(report)
	data.Analysis = report.Analysis
	var lines []string
	for _, src := range report.Sources {
		lines = append(lines, fmt.Sprintf("- %s (%s)", src.Title, src.URL))
	}
	data.Sources = strings.Join(lines, "\n")

	prompt, err := renderPrompt(promptVerification, data)
	if err != nil {
		return err
	}
	text, err := s.client.Complete(ctx, llm.Request{System: verifierRole, Prompt: prompt})
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	report.Verification = &model.VerificationResult{
		Text:       text,
		Confidence: ParseConfidence(text),
	}
	report.Result = text

	for _, u := range EvidenceURLs(text) {
		report.AddSource(model.Source{Title: u, URL: u})
	}
	return nil
}

// ParseConfidence returns the HIGH, MEDIUM or LOW confidence stated in
// text, or "" when there is none.
func ParseConfidence(text string) string {
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// EvidenceURLs returns the distinct URLs cited in text, in order.
func EvidenceURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

func baseData(report *model.FactCheckReport) promptData {
	data := promptData{
		Kind:    report.Input.Kind.String(),
		Label:   report.Input.Label(),
		Content: report.Content,
	}
	if data.Content == "" {
		data.Content = report.Input.Subject()
	}
	if report.Research != nil {
		data.Research = report.Research.Findings
	}
	return data
}

func setModel(report *model.FactCheckReport, client llm.Client) {
	if report.Model == "" {
		report.Model = llm.ModelName(client)
	}
}

// Deps are the collaborators of the default pipeline.
type Deps struct {
	// LLM writes the research, analysis and verification texts.
	LLM llm.Client

	// Searcher runs web searches during research. May be nil.
	Searcher search.Searcher

	// Pages fetches web pages for URL inputs. May be nil.
	Pages PageFetcher

	// Transcripts fetches YouTube transcripts. May be nil.
	Transcripts TranscriptFetcher

	// Logger is shared by the steps. May be nil.
	Logger *slog.Logger
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// MaxContentChars limits the content handed to the model.
	MaxContentChars int

	// MaxQueries is the number of search queries run during research.
	MaxQueries int

	// SearchResults is the number of results kept per query.
	SearchResults int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineMaxContentChars sets the content limit.
func WithPipelineMaxContentChars(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxContentChars = n
	}
}

// WithPipelineMaxQueries sets the number of research queries.
func WithPipelineMaxQueries(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxQueries = n
	}
}

// WithPipelineSearchResults sets the number of results kept per query.
func WithPipelineSearchResults(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SearchResults = n
	}
}

// DefaultPipeline creates the extract, research, analysis and verification
// pipeline.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineMaxQueries, etc).
func DefaultPipeline(deps Deps, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		MaxContentChars: config.DefaultMaxContentChars,
		MaxQueries:      config.DefaultMaxQueries,
		SearchResults:   config.DefaultSearchResults,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewExtractStep(deps.Pages, deps.Transcripts,
			WithExtractMaxChars(cfg.MaxContentChars),
			WithExtractLogger(deps.Logger),
		),
		NewResearchStep(deps.LLM, deps.Searcher,
			WithMaxQueries(cfg.MaxQueries),
			WithSearchResults(cfg.SearchResults),
			WithResearchLogger(deps.Logger),
		),
		NewAnalysisStep(deps.LLM),
		NewVerificationStep(deps.LLM),
	)

	return p
}
