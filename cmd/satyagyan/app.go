package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/satyagyan/internal/checker"
	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/fetch"
	"github.com/nao1215/satyagyan/internal/llm"
	"github.com/nao1215/satyagyan/internal/log"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/pipeline"
	"github.com/nao1215/satyagyan/internal/search"
	"github.com/nao1215/satyagyan/internal/transport"
)

// addEngineFlags registers the flags shared by every command that runs
// fact checks.
func addEngineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("config", "c", "",
		"Path to config file (default: .satyagyan in current or home directory)")
	flags.String("provider", config.DefaultProvider,
		"LLM provider: openai or gemini")
	flags.String("model", "",
		"Model name (default: gpt-4o-mini for openai, gemini-2.5-flash for gemini)")
	flags.String("search", config.DefaultSearchProvider,
		"Web search provider: serper, tavily or none")
	flags.Duration("timeout", config.DefaultTimeout,
		"Timeout for a single HTTP request")
	flags.Duration("check-timeout", config.DefaultCheckTimeout,
		"Timeout for a whole fact check")
	flags.Int("max-content", config.DefaultMaxContentChars,
		"Maximum characters of extracted content sent to the model")
	flags.Int("rate-limit", config.DefaultRequestsPerMinute,
		"Maximum LLM requests per minute (0 disables the limit)")
	flags.Bool("render", false,
		"Render web pages with a headless browser before extracting text")
	flags.Bool("tor", false,
		"Fetch content through an embedded Tor daemon")
	flags.String("proxy", "",
		"Fetch content through a SOCKS5 proxy (host:port)")
	flags.Bool("no-cache", false,
		"Always run a fresh check instead of reusing a recent result")
	flags.Bool("no-save", false,
		"Do not store results in the history database")
}

// buildConfig creates a Config from defaults, the config file, the
// environment and the command-line flags, in increasing order of
// precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	configPath := stringFlag(flags, "config")
	cfg.ConfigFilePath = config.FindConfigFile(configPath)
	if configPath != "" && cfg.ConfigFilePath == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}
	if cfg.ConfigFilePath != "" {
		cf, err := config.LoadConfigFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", cfg.ConfigFilePath, err)
		}
		cfg.ApplyFile(cf)
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	return cfg, nil
}

// applyFlags copies the flags the user actually set onto cfg, so that
// flag defaults never hide values from the file or the environment.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return err == nil && f != nil && f.Changed
	}

	if changed("provider") {
		cfg.Provider, err = flags.GetString("provider")
	}
	if changed("model") {
		cfg.Model, err = flags.GetString("model")
	}
	if changed("search") {
		cfg.SearchProvider, err = flags.GetString("search")
	}
	if changed("timeout") {
		cfg.Timeout, err = flags.GetDuration("timeout")
	}
	if changed("check-timeout") {
		cfg.CheckTimeout, err = flags.GetDuration("check-timeout")
	}
	if changed("max-content") {
		cfg.MaxContentChars, err = flags.GetInt("max-content")
	}
	if changed("rate-limit") {
		cfg.RequestsPerMinute, err = flags.GetInt("rate-limit")
	}
	if changed("render") {
		cfg.Render, err = flags.GetBool("render")
	}
	if changed("tor") {
		cfg.UseTor, err = flags.GetBool("tor")
	}
	if changed("proxy") {
		cfg.ProxyAddress, err = flags.GetString("proxy")
	}
	if changed("no-cache") {
		var noCache bool
		noCache, err = flags.GetBool("no-cache")
		cfg.UseCache = !noCache
	}
	if changed("no-save") {
		var noSave bool
		noSave, err = flags.GetBool("no-save")
		cfg.SaveToDB = !noSave
	}
	if changed("batch") {
		cfg.BatchSize, err = flags.GetInt("batch")
	}
	if changed("json") {
		cfg.JSONReport, err = flags.GetBool("json")
	}
	if changed("markdown") {
		cfg.MarkdownReport, err = flags.GetBool("markdown")
	}
	if changed("output") {
		cfg.ReportFile, err = flags.GetString("output")
	}
	if changed("addr") {
		cfg.ListenAddr, err = flags.GetString("addr")
	}
	if changed("db-dir") {
		cfg.DBDir, err = flags.GetString("db-dir")
	}
	return err
}

// stringFlag returns the value of a string flag, or "" if it is not defined.
func stringFlag(flags *pflag.FlagSet, name string) string {
	if flags.Lookup(name) == nil {
		return ""
	}
	v, err := flags.GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// getVerboseFlag retrieves the verbose flag from command or its parents.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return verbose
}

// setupLogger creates a logger that writes to stderr with sensitive
// values redacted.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// app holds everything a command needs to run fact checks.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	checker *checker.Checker
	store   database.Store
	closers []func() error

	// httpClient fetches pages, transcripts and feeds.
	httpClient *http.Client
	// browserProxy is the SOCKS5 address ("host:port") the headless
	// browser must use; it matches the route of httpClient.
	browserProxy string
}

// newApp wires the HTTP clients, fetchers, search, LLM client, history
// store and checker described by cfg. The caller must call Close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress model.ProgressFunc) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.init(ctx, progress); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, progress model.ProgressFunc) error {
	cfg := a.cfg

	fetchClient, err := a.fetchClient(ctx)
	if err != nil {
		return err
	}
	a.httpClient = fetchClient

	scraperOpts := []fetch.ScraperOption{
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithMaxChars(cfg.MaxContentChars),
		fetch.WithScraperLogger(a.logger),
	}
	if renderer := a.renderer(); renderer != nil {
		scraperOpts = append(scraperOpts, fetch.WithRenderer(renderer, func(u string) bool {
			return cfg.Render || cfg.File.GetSiteConfig(u).Render
		}))
	}

	deps := pipeline.Deps{
		Pages: fetch.NewScraper(fetchClient, scraperOpts...),
		Transcripts: fetch.NewTranscriptFetcher(fetchClient,
			fetch.WithLanguage(cfg.TranscriptLanguage),
			fetch.WithTranscriptMaxChars(cfg.MaxContentChars),
			fetch.WithTranscriptLogger(a.logger),
		),
		Logger: a.logger,
	}

	// Search APIs are called directly; only content fetching goes through
	// the proxy.
	searchClient, err := transport.NewHTTPClient(transport.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}
	searcher, err := search.NewSearcher(cfg.SearchProvider, cfg.SearchKey(), search.WithHTTPClient(searchClient))
	if err != nil {
		return err
	}
	if searcher != nil {
		deps.Searcher = searcher
	} else {
		a.logger.Warn("web search is disabled; research relies on the model alone")
	}

	deps.LLM, err = llm.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	if cfg.SaveToDB {
		a.store, err = database.OpenStore(ctx, cfg.DatabaseURL, cfg.DBDir)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		a.closers = append(a.closers, a.store.Close)
	}

	factory := func(opts ...pipeline.Option) *pipeline.Pipeline {
		return pipeline.DefaultPipeline(deps, opts,
			pipeline.WithPipelineMaxContentChars(cfg.MaxContentChars),
			pipeline.WithPipelineMaxQueries(cfg.MaxQueries),
			pipeline.WithPipelineSearchResults(cfg.SearchResults),
		)
	}

	checkerOpts := []checker.Option{
		checker.WithCache(cfg.UseCache, cfg.CacheTTL),
		checker.WithCheckTimeout(cfg.CheckTimeout),
		checker.WithConcurrency(cfg.BatchSize),
		checker.WithProgress(progress),
		checker.WithLogger(a.logger),
	}
	if a.store != nil {
		checkerOpts = append(checkerOpts, checker.WithStore(a.store))
	}
	a.checker = checker.New(factory, checkerOpts...)
	return nil
}

// fetchClient returns the HTTP client used for web pages and transcripts,
// routed through Tor or a SOCKS5 proxy when configured.
func (a *app) fetchClient(ctx context.Context) (*http.Client, error) {
	cfg := a.cfg
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithSiteHeaders(func(u string) (string, map[string]string) {
			sc := cfg.File.GetSiteConfig(u)
			return sc.Cookie, sc.Headers
		}),
	}

	switch {
	case cfg.UseTor:
		a.logger.Info("starting embedded Tor daemon", "timeout", cfg.TorStartupTimeout)
		tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		a.closers = append(a.closers, tor.Stop)
		a.logger.Info("embedded Tor daemon started", "socks_addr", tor.SocksAddr())
		a.browserProxy = tor.SocksAddr()
		return tor.HTTPClient(opts...)

	case cfg.ProxyAddress != "":
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress).Err(); err != nil {
			return nil, fmt.Errorf("proxy %s is not usable: %w", cfg.ProxyAddress, err)
		}
		a.browserProxy = cfg.ProxyAddress
		return transport.NewHTTPClient(append(opts, transport.WithProxy(cfg.ProxyAddress))...)

	default:
		return transport.NewHTTPClient(opts...)
	}
}

// renderer returns a headless browser renderer when the command line or
// any site entry asks for rendering, or nil. It must be called after
// fetchClient so that the browser takes the same route as plain fetches.
func (a *app) renderer() *fetch.RodRenderer {
	cfg := a.cfg
	needed := cfg.Render || cfg.File.Defaults.Render
	for _, sc := range cfg.File.Sites {
		needed = needed || sc.Render
	}
	if !needed {
		return nil
	}

	opts := []fetch.RodOption{
		fetch.WithRenderTimeout(cfg.Timeout),
		fetch.WithBrowserUserAgent(cfg.UserAgent),
	}
	if a.browserProxy != "" {
		opts = append(opts, fetch.WithBrowserProxy(a.browserProxy))
	}
	r := fetch.NewRodRenderer(opts...)
	a.closers = append(a.closers, r.Close)
	a.logger.Debug("headless rendering enabled", "proxy", r.ProxyAddr())
	return r
}

// Close releases the resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// progressPrinter returns a ProgressFunc that writes milestones to w.
// It returns nil when quiet is set.
func progressPrinter(w io.Writer, quiet bool) model.ProgressFunc {
	if quiet {
		return nil
	}
	return func(stage model.Stage) {
		fmt.Fprintf(w, "[%3d%%] %s\n", stage.Percent, stage.Message)
	}
}
