package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "satyagyan"

	// ProviderOpenAI selects the OpenAI chat completions API.
	ProviderOpenAI = "openai"

	// ProviderGemini selects the Google Gemini API.
	ProviderGemini = "gemini"

	// SearchSerper selects the Serper Google search API.
	SearchSerper = "serper"

	// SearchTavily selects the Tavily search API.
	SearchTavily = "tavily"

	// SearchNone disables web search during research.
	SearchNone = "none"

	// DefaultProvider is the LLM provider used when none is configured.
	DefaultProvider = ProviderOpenAI

	// DefaultOpenAIModel is the default chat model for the OpenAI provider.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultGeminiModel is the default model for the Gemini provider.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultSearchProvider is the search backend used when a key is present.
	DefaultSearchProvider = SearchSerper

	// DefaultTemperature keeps model output close to deterministic.
	DefaultTemperature = 0.2

	// DefaultTimeout bounds a single HTTP request to a web page or API.
	DefaultTimeout = 60 * time.Second

	// DefaultCheckTimeout bounds a whole check, all stages included.
	DefaultCheckTimeout = 10 * time.Minute

	// DefaultBatchSize is the number of concurrent checks in batch mode.
	DefaultBatchSize = 4

	// DefaultRequestsPerMinute caps LLM calls across the whole process.
	DefaultRequestsPerMinute = 30

	// DefaultSearchResults is how many search results each query keeps.
	DefaultSearchResults = 5

	// DefaultMaxQueries is how many search queries the researcher may run.
	DefaultMaxQueries = 3

	// DefaultMaxContentChars limits the extracted content handed to the model.
	DefaultMaxContentChars = 20000

	// DefaultMaxBodySize limits how much of a fetched page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxUploadSize limits documents uploaded to the HTTP server.
	DefaultMaxUploadSize = 10 * 1024 * 1024 // 10MB

	// DefaultCacheTTL is how long a stored result answers identical inputs.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultUserAgent identifies SatyaGyan in HTTP requests.
	DefaultUserAgent = "SatyaGyan/1.0 (+https://github.com/nao1215/satyagyan)"

	// DefaultTranscriptLanguage is the preferred YouTube caption language.
	DefaultTranscriptLanguage = "en"

	// DefaultListenAddr is the address the HTTP server binds to.
	DefaultListenAddr = ":8080"

	// DefaultWatchSchedule is the cron spec used by the feed watcher.
	DefaultWatchSchedule = "@every 1h"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for SatyaGyan.
// It is populated from defaults, the config file, the environment and
// CLI flags (in increasing order of precedence) and then passed down
// explicitly; no package reads configuration from global state.
type Config struct {
	// Provider selects the LLM backend: "openai" or "gemini".
	Provider string

	// Model is the model name passed to the provider.
	// Empty means the provider's default.
	Model string

	// Temperature is the sampling temperature for every stage.
	Temperature float64

	// OpenAIAPIKey authenticates against the OpenAI API.
	OpenAIAPIKey string

	// OpenAIBaseURL overrides the OpenAI endpoint, for compatible gateways.
	OpenAIBaseURL string

	// GeminiAPIKey authenticates against the Gemini API.
	GeminiAPIKey string

	// SearchProvider selects the web search backend: "serper", "tavily" or "none".
	SearchProvider string

	// SerperAPIKey authenticates against the Serper search API.
	SerperAPIKey string

	// TavilyAPIKey authenticates against the Tavily search API.
	TavilyAPIKey string

	// SearchResults is the number of results kept per search query.
	SearchResults int

	// MaxQueries is the number of search queries run during research.
	MaxQueries int

	// RequestsPerMinute caps LLM calls. Zero disables the limit.
	RequestsPerMinute int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CheckTimeout bounds a whole check.
	CheckTimeout time.Duration

	// BatchSize is the number of concurrent checks in batch mode.
	BatchSize int

	// MaxContentChars limits the extracted content handed to the model.
	MaxContentChars int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MaxUploadSize is the maximum document size accepted by the server.
	MaxUploadSize int64

	// UserAgent is the User-Agent header sent when fetching content.
	UserAgent string

	// TranscriptLanguage is the preferred YouTube caption language code.
	TranscriptLanguage string

	// Render fetches web pages through a headless browser so that
	// JavaScript-built content is included.
	Render bool

	// ProxyAddress routes content fetching through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes content fetching
	// through it. Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// ConfigFilePath is the path to the configuration file.
	// If empty, .satyagyan is searched in the current and home directories.
	ConfigFilePath string

	// File holds the settings loaded from the configuration file.
	File *File

	// SaveToDB stores every finished check in the history database.
	SaveToDB bool

	// DBDir is the directory of the SQLite history database.
	// Defaults to the XDG data directory.
	DBDir string

	// DatabaseURL selects a PostgreSQL history store instead of SQLite.
	DatabaseURL string

	// UseCache answers repeated inputs from history within CacheTTL.
	UseCache bool

	// CacheTTL is the maximum age of a stored result that may be reused.
	CacheTTL time.Duration

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Provider:           DefaultProvider,
		Temperature:        DefaultTemperature,
		SearchProvider:     DefaultSearchProvider,
		SearchResults:      DefaultSearchResults,
		MaxQueries:         DefaultMaxQueries,
		RequestsPerMinute:  DefaultRequestsPerMinute,
		Timeout:            DefaultTimeout,
		CheckTimeout:       DefaultCheckTimeout,
		BatchSize:          DefaultBatchSize,
		MaxContentChars:    DefaultMaxContentChars,
		MaxBodySize:        DefaultMaxBodySize,
		MaxUploadSize:      DefaultMaxUploadSize,
		UserAgent:          DefaultUserAgent,
		TranscriptLanguage: DefaultTranscriptLanguage,
		TorStartupTimeout:  DefaultTorStartupTimeout,
		SaveToDB:           true,
		UseCache:           true,
		CacheTTL:           DefaultCacheTTL,
		ListenAddr:         DefaultListenAddr,
		File:               &File{Sites: make(map[string]SiteConfig)},
	}
}

// ModelName returns the configured model or the provider's default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

// XDGDataDir returns the XDG data directory for SatyaGyan.
// On Linux: ~/.local/share/satyagyan
// On macOS: ~/Library/Application Support/satyagyan
// On Windows: %LOCALAPPDATA%\satyagyan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for SatyaGyan.
// On Linux: ~/.config/satyagyan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for SatyaGyan.
// On Linux: ~/.cache/satyagyan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrMissingOpenAIKey
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return ErrMissingGeminiKey
		}
	default:
		return ErrUnknownProvider
	}

	switch c.SearchProvider {
	case SearchSerper, SearchTavily, SearchNone, "":
	default:
		return ErrUnknownSearchProvider
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}

	if c.Timeout <= 0 || c.CheckTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.RequestsPerMinute < 0 {
		return ErrInvalidRateLimit
	}

	if c.MaxContentChars <= 0 {
		return ErrInvalidMaxContent
	}

	if c.MaxBodySize < 0 || c.MaxUploadSize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxies
	}

	return nil
}

// SearchKey returns the API key for the configured search provider.
// An empty result means research runs without web search.
func (c *Config) SearchKey() string {
	switch c.SearchProvider {
	case SearchSerper, "":
		return c.SerperAPIKey
	case SearchTavily:
		return c.TavilyAPIKey
	default:
		return ""
	}
}
