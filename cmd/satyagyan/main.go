// Package main provides the entry point for the SatyaGyan CLI.
//
// SatyaGyan is an AI fact-checking assistant. It researches a claim, a web
// page, a YouTube video or a document on the web, analyzes it with a
// language model, and reports a verdict with its evidence.
//
// Usage:
//
//	satyagyan check "The Great Wall of China is visible from space"
//	satyagyan check --url https://example.com/article
//	satyagyan serve --addr :8080
//
// See --help for all available options.
package main

// main is the entry point for SatyaGyan.
func main() {
	Execute()
}
