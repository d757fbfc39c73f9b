package engine

import "github.com/deepnoodle-ai/gantry"

// RunStatus is the lifecycle state of one run.
type RunStatus string

const (
	StatusInitializing RunStatus = "initializing"
	StatusRunning      RunStatus = "running"
	StatusCompleted    RunStatus = "completed"
	StatusFailed       RunStatus = "failed"
	StatusEscalated    RunStatus = "escalated"
	StatusInterrupted  RunStatus = "interrupted"
)

// Escalation describes a gate that exhausted its retry budget: which
// criteria failed on the final evaluation, and how many evaluations were
// spent.
type Escalation struct {
	NodeID         string
	Evaluations    int
	FailedCriteria []gantry.CriterionResult
}

// RunResult is the terminal report of one run.
type RunResult struct {
	RunID       string
	Status      RunStatus
	Outcomes    map[string]*gantry.NodeOutcome
	Escalations []Escalation
	Cycles      int
}
