package gantry

import (
	"maps"
	"time"
)

// OutcomeStatus describes the terminal result of one node execution attempt.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeFailure   OutcomeStatus = "failure"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeEscalated OutcomeStatus = "escalated"
)

// SkipReason records why a node received a Skipped outcome. The reason
// determines whether the skip propagates readiness downstream.
type SkipReason string

const (
	// SkipBranchNotTaken marks a node on a conditional branch whose
	// condition resolved the other way. Unconditional edges from such a
	// node are still satisfied, so merge points after a branch run.
	SkipBranchNotTaken SkipReason = "branch_not_taken"

	// SkipBlocked marks a node whose dependency failed or escalated with
	// no alternate path. Blocked skips do not satisfy downstream edges,
	// so nothing past the blockage executes.
	SkipBlocked SkipReason = "blocked"
)

// Terminal returns true for statuses that will never change again.
func (s OutcomeStatus) Terminal() bool {
	switch s {
	case OutcomeSuccess, OutcomeFailure, OutcomeSkipped, OutcomeEscalated:
		return true
	}
	return false
}

// NodeOutcome is the immutable result of executing one node. A retried gate
// target produces a new outcome that supersedes the prior one in folded run
// state, while the append-only checkpoint log retains the history.
type NodeOutcome struct {
	NodeID      string            `json:"node_id"`
	Status      OutcomeStatus     `json:"status"`
	Artifacts   map[string]string `json:"artifacts,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`

	// SkipReason is set only on Skipped outcomes.
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	// Criteria holds evaluated criterion results for gate nodes.
	Criteria []CriterionResult `json:"criteria,omitempty"`
}

// Duration returns the wall-clock time the execution attempt took.
func (o *NodeOutcome) Duration() time.Duration {
	return o.CompletedAt.Sub(o.StartedAt)
}

// Artifact returns a named output artifact, if present.
func (o *NodeOutcome) Artifact(name string) (string, bool) {
	value, ok := o.Artifacts[name]
	return value, ok
}

// Clone returns a deep copy of the outcome.
func (o *NodeOutcome) Clone() *NodeOutcome {
	dup := *o
	dup.Artifacts = maps.Clone(o.Artifacts)
	dup.Criteria = append([]CriterionResult(nil), o.Criteria...)
	return &dup
}

// CompareOp is a comparison operator used in gate acceptance criteria.
type CompareOp string

const (
	OpEquals         CompareOp = "equals"
	OpNotEquals      CompareOp = "not_equals"
	OpGreaterThan    CompareOp = "greater_than"
	OpGreaterOrEqual CompareOp = "greater_or_equal"
	OpLessThan       CompareOp = "less_than"
	OpLessOrEqual    CompareOp = "less_or_equal"
	OpContains       CompareOp = "contains"
)

// Valid reports whether the operator is one of the supported comparisons.
func (op CompareOp) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual,
		OpLessThan, OpLessOrEqual, OpContains:
		return true
	}
	return false
}

// Criterion is one acceptance criterion on a gate node: a field path into
// upstream outputs, a comparison operator, and the expected value.
type Criterion struct {
	Field    string    `json:"field" yaml:"field"`
	Op       CompareOp `json:"op" yaml:"op"`
	Expected string    `json:"expected" yaml:"expected"`
}

// CriterionResult records how a single criterion evaluated, including the
// actual value found, so gate decisions are auditable after the fact.
type CriterionResult struct {
	Criterion Criterion `json:"criterion"`
	Actual    string    `json:"actual"`
	Found     bool      `json:"found"`
	Passed    bool      `json:"passed"`
}
