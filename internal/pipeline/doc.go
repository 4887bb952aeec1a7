// Package pipeline runs a fact check as a sequence of steps.
//
// A check moves through four steps that share one model.FactCheckReport:
//
//	extract → research → analysis → verification
//
// The extract step turns the input into plain text (fetching web pages and
// YouTube transcripts when needed). Research plans web searches, runs them
// and writes up the evidence. Analysis examines the content against that
// evidence, and verification weighs both and ends with a verdict line. Each
// language-model step sees the outputs of the steps before it.
//
// After the last step the pipeline calls report.Finalize, which classifies
// the result text into a verdict.
//
// BatchProcessor checks many inputs concurrently using errgroup, giving every
// input its own report so that nothing is shared between checks.
package pipeline
