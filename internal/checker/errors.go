package checker

import (
	"fmt"

	"github.com/nao1215/satyagyan/internal/model"
)

// CheckError is returned when a pipeline step fails. The partially filled
// report is attached so that callers can still show or store it.
type CheckError struct {
	// Stage is the name of the step that failed, or "" when unknown.
	Stage string

	// Err is the step's error.
	Err error

	// Report is the report as it stood when the step failed.
	Report *model.FactCheckReport
}

// Error implements error.
func (e *CheckError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("fact check failed: %v", e.Err)
	}
	return fmt.Sprintf("fact check failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckError) Unwrap() error {
	return e.Err
}
