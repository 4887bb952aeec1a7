package server

import "errors"

var (
	// ErrNoInput is returned when a request carries no content to check.
	ErrNoInput = errors.New("input required: provide text, url, youtube_url or a file")

	// ErrAmbiguousInput is returned when a request carries more than one
	// kind of content.
	ErrAmbiguousInput = errors.New("provide only one of text, url, youtube_url or file")

	// ErrHistoryDisabled is returned by history routes when no store is
	// configured.
	ErrHistoryDisabled = errors.New("check history is disabled")

	// ErrInvalidLimit is returned for a non-numeric or negative limit.
	ErrInvalidLimit = errors.New("limit must be a non-negative integer")
)
