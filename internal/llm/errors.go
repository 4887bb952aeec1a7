package llm

import "errors"

var (
	// ErrMissingAPIKey is returned by New when the selected provider has no key.
	// The wrapped message names the environment variable to set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrUnknownProvider is returned by New for providers other than openai and gemini.
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrNoJSON is returned by ExtractJSON when the text holds no JSON object.
	ErrNoJSON = errors.New("no JSON object found in model output")
)
