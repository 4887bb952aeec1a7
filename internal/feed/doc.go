// Package feed turns RSS and Atom feeds into fact-check inputs.
//
// Load reads a feed once. Watcher polls a feed on a cron schedule and
// checks every item it has not seen before, identifying items by the
// fingerprint of the input they produce.
package feed
