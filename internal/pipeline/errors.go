package pipeline

import "errors"

var (
	// ErrNoFetcher is returned by ExtractStep for URL or YouTube inputs when
	// the step was built without the matching fetcher.
	ErrNoFetcher = errors.New("no fetcher configured for this input kind")

	// ErrNoContent is returned when the input yields no text to check.
	ErrNoContent = errors.New("no content to analyze")
)
