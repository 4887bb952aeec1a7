package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is() by callers that want to react to a specific problem.
var (
	// ErrMissingOpenAIKey is returned when the OpenAI provider is selected
	// but no key was found in the environment or the config file.
	ErrMissingOpenAIKey = errors.New("configuration error: please set OPENAI_API_KEY in the environment or the .env file")

	// ErrMissingGeminiKey is returned when the Gemini provider is selected
	// without a key.
	ErrMissingGeminiKey = errors.New("configuration error: please set GEMINI_API_KEY in the environment or the .env file")

	// ErrUnknownProvider is returned for providers other than openai and gemini.
	ErrUnknownProvider = errors.New("unknown LLM provider: must be openai or gemini")

	// ErrUnknownSearchProvider is returned for search backends other than
	// serper, tavily and none.
	ErrUnknownSearchProvider = errors.New("unknown search provider: must be serper, tavily or none")

	// ErrInvalidTemperature is returned when the temperature is outside 0..2.
	ErrInvalidTemperature = errors.New("invalid temperature: must be between 0 and 2")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRateLimit is returned when the LLM rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidMaxContent is returned when the content limit is not positive.
	ErrInvalidMaxContent = errors.New("invalid max content length: must be positive")

	// ErrInvalidMaxBodySize is returned when a size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingProxies is returned when both --tor and --proxy are specified.
	ErrConflictingProxies = errors.New("conflicting proxies: --tor and --proxy cannot be used together")
)
