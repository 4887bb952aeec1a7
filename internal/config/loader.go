package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".satyagyan"

// Environment variable names read by ApplyEnv.
const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvSerperAPIKey  = "SERPER_API_KEY"
	EnvTavilyAPIKey  = "TAVILY_API_KEY"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvProvider      = "SATYAGYAN_PROVIDER"
	EnvModel         = "SATYAGYAN_MODEL"
	EnvSearch        = "SATYAGYAN_SEARCH"
	EnvRateLimit     = "SATYAGYAN_REQUESTS_PER_MINUTE"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .satyagyan in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .satyagyan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// With no arguments it reads ./.env. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

// ApplyFile copies the non-zero settings of the configuration file onto c.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	c.File = cf

	if cf.LLM.Provider != "" {
		c.Provider = cf.LLM.Provider
	}
	if cf.LLM.Model != "" {
		c.Model = cf.LLM.Model
	}
	if cf.LLM.Temperature != 0 {
		c.Temperature = cf.LLM.Temperature
	}
	if cf.LLM.RequestsPerMinute != 0 {
		c.RequestsPerMinute = cf.LLM.RequestsPerMinute
	}
	if cf.LLM.BaseURL != "" {
		c.OpenAIBaseURL = cf.LLM.BaseURL
	}

	if cf.Search.Provider != "" {
		c.SearchProvider = cf.Search.Provider
	}
	if cf.Search.Results > 0 {
		c.SearchResults = cf.Search.Results
	}
	if cf.Search.MaxQueries > 0 {
		c.MaxQueries = cf.Search.MaxQueries
	}

	if cf.Fetch.UserAgent != "" {
		c.UserAgent = cf.Fetch.UserAgent
	}
	if cf.Fetch.MaxContentChars > 0 {
		c.MaxContentChars = cf.Fetch.MaxContentChars
	}
	if cf.Fetch.TranscriptLanguage != "" {
		c.TranscriptLanguage = cf.Fetch.TranscriptLanguage
	}
	if cf.Fetch.Proxy != "" {
		c.ProxyAddress = cf.Fetch.Proxy
	}
}

// ApplyEnv copies settings from environment variables onto c.
// The lookup function is normally os.LookupEnv; tests pass their own.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	set(EnvOpenAIAPIKey, &c.OpenAIAPIKey)
	set(EnvOpenAIBaseURL, &c.OpenAIBaseURL)
	set(EnvGeminiAPIKey, &c.GeminiAPIKey)
	set(EnvSerperAPIKey, &c.SerperAPIKey)
	set(EnvTavilyAPIKey, &c.TavilyAPIKey)
	set(EnvDatabaseURL, &c.DatabaseURL)
	set(EnvProvider, &c.Provider)
	set(EnvModel, &c.Model)
	set(EnvSearch, &c.SearchProvider)

	if v, ok := lookup(EnvRateLimit); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.RequestsPerMinute = n
		}
	}

	// Pick Tavily automatically when it is the only search key available.
	if c.SearchProvider == SearchSerper && c.SerperAPIKey == "" && c.TavilyAPIKey != "" {
		c.SearchProvider = SearchTavily
	}
}
