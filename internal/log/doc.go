// Package log provides slog loggers that never write credentials.
//
// SatyaGyan handles several API keys (OpenAI, Gemini, Serper, Tavily),
// per-site cookies and database connection strings. SecureHandler wraps
// any slog.Handler and replaces such values with MaskValue, whether they
// appear under a sensitive attribute key, as a whole value that looks like
// a key, or embedded in a URL, DSN or error message.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching", "url", "https://example.com/?api_key=abc")
//	// url=https://example.com/?api_key=***REDACTED***
package log
