package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds fetch settings for a single website.
// It lets users supply session cookies or headers for sites whose
// articles are only readable when signed in.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when fetching pages from this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Render forces headless-browser rendering for this site.
	Render bool `yaml:"render,omitempty"`
}

// LLMSettings is the llm section of the configuration file.
type LLMSettings struct {
	Provider          string  `yaml:"provider,omitempty"`
	Model             string  `yaml:"model,omitempty"`
	Temperature       float64 `yaml:"temperature,omitempty"`
	RequestsPerMinute int     `yaml:"requestsPerMinute,omitempty"`
	BaseURL           string  `yaml:"baseURL,omitempty"`
}

// SearchSettings is the search section of the configuration file.
type SearchSettings struct {
	Provider   string `yaml:"provider,omitempty"`
	Results    int    `yaml:"results,omitempty"`
	MaxQueries int    `yaml:"maxQueries,omitempty"`
}

// FetchSettings is the fetch section of the configuration file.
type FetchSettings struct {
	UserAgent          string `yaml:"userAgent,omitempty"`
	MaxContentChars    int    `yaml:"maxContentChars,omitempty"`
	TranscriptLanguage string `yaml:"transcriptLanguage,omitempty"`
	Proxy              string `yaml:"proxy,omitempty"`
}

// File represents the structure of the .satyagyan configuration file.
// API keys are deliberately absent: they belong in the environment or .env.
type File struct {
	// LLM configures the language model provider.
	LLM LLMSettings `yaml:"llm,omitempty"`

	// Search configures the web search backend.
	Search SearchSettings `yaml:"search,omitempty"`

	// Fetch configures content fetching.
	Fetch FetchSettings `yaml:"fetch,omitempty"`

	// Sites maps host names to their site-specific configurations.
	// Keys are bare hosts such as "example.com"; subdomains inherit the
	// configuration of their parent domain.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for the host of rawURL.
// It merges the closest matching site entry over the defaults.
func (cf *File) GetSiteConfig(rawURL string) SiteConfig {
	result := cf.Defaults

	host := hostOf(rawURL)
	siteConfig, ok := cf.lookupSite(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if siteConfig.Render {
		result.Render = true
	}

	return result
}

// lookupSite finds the entry for host, walking up to parent domains
// ("news.example.com" falls back to "example.com").
func (cf *File) lookupSite(host string) (SiteConfig, bool) {
	for host != "" {
		if sc, ok := cf.Sites[host]; ok {
			return sc, true
		}
		if sc, ok := cf.Sites["www."+host]; ok {
			return sc, true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return SiteConfig{}, false
}

// hostOf returns the lowercased host of rawURL without a www. prefix.
// Bare host names are accepted as well.
func hostOf(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
