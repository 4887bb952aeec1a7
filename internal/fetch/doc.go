// Package fetch retrieves the content behind a claim's URL.
//
// A Scraper downloads a web page and reduces it to its readable text:
// navigation, scripts and other boilerplate are dropped and article or
// main content is preferred when the page marks it up. Pages that build
// their content with JavaScript can be loaded through a Renderer backed
// by a headless Chromium instead.
//
// A TranscriptFetcher returns the captions of a YouTube video, falling
// back to the video description when no captions exist.
package fetch
