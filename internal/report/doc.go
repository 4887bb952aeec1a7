// Package report renders fact-check reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the plain-text report that users download
//   - MarkdownWriter: a GitHub-flavored report with a verdict alert,
//     collapsible stage output and a sources table; WriteSummary renders
//     a batch overview with a verdict pie chart
//   - JSONWriter and FullJSONWriter: structured output for tooling
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
