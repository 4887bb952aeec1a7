// Package server exposes fact checking over HTTP.
//
// It serves an HTML form with the four input modes (claim, web page,
// YouTube video, document upload) and a JSON API for the same checks and
// for the stored history. Requests are routed with gorilla/mux and
// instrumented with Prometheus metrics served at /metrics.
package server
