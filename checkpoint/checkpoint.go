// Package checkpoint provides durable, crash-safe persistence of run
// progress. Each node transition is persisted as one append-only Record;
// folding an ordered sequence of records reconstructs the run's current
// State, which is how interrupted runs resume.
package checkpoint

import (
	"time"

	"github.com/deepnoodle-ai/gantry"
)

// RecordKind distinguishes the two kinds of persisted deltas.
type RecordKind string

const (
	// KindOutcome records a node's latest execution outcome.
	KindOutcome RecordKind = "outcome"

	// KindReset clears a node's folded outcome so it can execute again,
	// used when a gate re-dispatches its retry target. The append-only log
	// retains the superseded outcome for audit.
	KindReset RecordKind = "reset"
)

// Record is a single persisted delta: one node's transition plus the run id
// it belongs to.
type Record struct {
	RunID     string              `json:"run_id"`
	Sequence  int64               `json:"sequence"`
	NodeID    string              `json:"node_id"`
	Kind      RecordKind          `json:"kind"`
	Outcome   *gantry.NodeOutcome `json:"outcome,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// State is the folded, mutable view of a run's progress: the latest outcome
// per node plus failure counters used to bound gate retries. It is mutated
// exclusively by the engine's single checkpoint-writer path.
type State struct {
	RunID    string
	LastSeq  int64
	Outcomes map[string]*gantry.NodeOutcome
	Failures map[string]int
}

// NewState returns an empty state for a fresh run.
func NewState(runID string) *State {
	return &State{
		RunID:    runID,
		Outcomes: make(map[string]*gantry.NodeOutcome),
		Failures: make(map[string]int),
	}
}

// Apply folds one record into the state. Outcome records supersede any prior
// outcome for the node; reset records delete it. Failure outcomes also bump
// the node's failure counter, which survives resets so retry budgets hold
// across resumes.
func (s *State) Apply(record *Record) {
	if record.Sequence > s.LastSeq {
		s.LastSeq = record.Sequence
	}
	switch record.Kind {
	case KindReset:
		delete(s.Outcomes, record.NodeID)
	case KindOutcome:
		if record.Outcome == nil {
			return
		}
		s.Outcomes[record.NodeID] = record.Outcome
		if record.Outcome.Status == gantry.OutcomeFailure {
			s.Failures[record.NodeID]++
		}
	}
}

// FailureCount returns how many failure outcomes have been recorded for the
// node across the whole run, including superseded ones.
func (s *State) FailureCount(nodeID string) int {
	return s.Failures[nodeID]
}

// Outcome returns the node's folded outcome, if any.
func (s *State) Outcome(nodeID string) (*gantry.NodeOutcome, bool) {
	outcome, ok := s.Outcomes[nodeID]
	return outcome, ok
}

// Fold replays an ordered sequence of records into a state. Replaying an
// identical sequence always yields an identical state.
func Fold(runID string, records []*Record) *State {
	state := NewState(runID)
	for _, record := range records {
		state.Apply(record)
	}
	return state
}
