package model

// Stage is a progress milestone reported while a check runs.
type Stage struct {
	// Percent is the overall completion from 0 to 100.
	Percent int `json:"percent"`

	// Message is the user-facing description of the milestone.
	Message string `json:"message"`
}

// The four milestones every check passes through, in order.
var (
	StageInitializing = Stage{Percent: 0, Message: "Initializing SatyaGyan system..."}
	StageLoading      = Stage{Percent: 20, Message: "Loading AI agents..."}
	StageExecuting    = Stage{Percent: 60, Message: "Executing multi-agent analysis..."}
	StageComplete     = Stage{Percent: 100, Message: "Analysis complete!"}
)

// ProgressFunc receives milestones as a check advances.
type ProgressFunc func(Stage)
