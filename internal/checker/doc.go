// Package checker runs complete fact checks: input validation, the result
// cache, the pipeline, and saving to history.
//
// It is the single entry point used by the CLI, the feed watcher and the
// HTTP server, so all of them share the same caching and error semantics.
package checker
