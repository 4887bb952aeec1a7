package fetch

import "errors"

var (
	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContent is returned when a URL serves something that is
	// neither HTML, plain text nor a PDF.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrEmptyContent is returned when no readable text could be found.
	ErrEmptyContent = errors.New("no readable content found")

	// ErrNoTranscript is returned when a video has neither captions nor a
	// description.
	ErrNoTranscript = errors.New("no transcript or description available for this video")
)
