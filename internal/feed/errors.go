package feed

import "errors"

var (
	// ErrUnexpectedStatus is returned when the feed URL answers with a
	// non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNoFeedURL is returned when a watcher is created without a feed.
	ErrNoFeedURL = errors.New("feed URL is required")

	// ErrNoChecker is returned when a watcher is created without a checker.
	ErrNoChecker = errors.New("checker is required")
)
