// Package model defines the core data structures used throughout SatyaGyan.
//
// This package contains the following main types:
//   - Input: A claim, web URL, YouTube URL, or decoded document submitted for checking
//   - FactCheckReport: The result of running an input through the check pipeline
//   - Verdict: The display category derived from the pipeline's final result text
//   - Stage: A progress milestone reported while a check is running
//
// Models live in their own package because the pipeline, report writers,
// database and server all exchange them.
//
// The models are serializable to JSON for report output and database storage.
package model
