package graph

import (
	"fmt"

	"github.com/deepnoodle-ai/gantry"
)

// Condition is a predicate over the source node's outcome. Edges with no
// condition are unconditional.
type Condition string

const (
	// ConditionNone marks an unconditional edge: satisfied once the source
	// has a Success outcome or a branch-not-taken Skipped outcome.
	ConditionNone Condition = ""

	// ConditionPassed is satisfied when the source outcome is Success.
	ConditionPassed Condition = "passed"

	// ConditionFailed is satisfied when the source outcome is Failure.
	ConditionFailed Condition = "failed"
)

// Edge is a directed dependency between two nodes.
type Edge struct {
	From      string
	To        string
	Condition Condition
}

func (e Edge) validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("edge endpoints cannot be empty (%q -> %q)", e.From, e.To)
	}
	if e.From == e.To {
		return fmt.Errorf("edge %q -> %q is a self-loop", e.From, e.To)
	}
	switch e.Condition {
	case ConditionNone, ConditionPassed, ConditionFailed:
		return nil
	}
	return fmt.Errorf("edge %q -> %q: unknown condition %q", e.From, e.To, e.Condition)
}

// Satisfied reports whether the edge's dependency is met by the source
// node's outcome. A nil outcome means the source has not executed yet.
func (e Edge) Satisfied(source *gantry.NodeOutcome) bool {
	if source == nil {
		return false
	}
	switch e.Condition {
	case ConditionPassed:
		return source.Status == gantry.OutcomeSuccess
	case ConditionFailed:
		return source.Status == gantry.OutcomeFailure
	default:
		if source.Status == gantry.OutcomeSkipped {
			// A skip caused by an upstream failure blocks everything
			// downstream; a skip of an untaken branch does not.
			return source.SkipReason != gantry.SkipBlocked
		}
		return source.Status == gantry.OutcomeSuccess
	}
}
