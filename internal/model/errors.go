package model

import "errors"

// Input validation errors.
// These are returned by Input.Validate() and shown to the user unchanged,
// so their messages are written for end users rather than developers.
var (
	// ErrInputRequired is returned when an input carries no content at all.
	ErrInputRequired = errors.New("input required: please provide content to analyze")

	// ErrInvalidURL is returned when a URL input is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL: expected an absolute http or https address")

	// ErrInvalidYouTubeURL is returned when a YouTube input does not contain a video ID.
	ErrInvalidYouTubeURL = errors.New("invalid YouTube URL: please enter a valid YouTube URL")

	// ErrUnknownInputKind is returned for input kinds this package does not define.
	ErrUnknownInputKind = errors.New("unknown input kind")

	// ErrUnknownVerdict is returned by ParseVerdict for unrecognized names.
	ErrUnknownVerdict = errors.New("unknown verdict")
)
