package handler

import (
	"context"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
)

// StructuralHandler executes fan-out and fan-in nodes. They do no work of
// their own: they succeed immediately, forwarding the merged artifacts of
// their direct predecessors so downstream nodes and gates see one
// combined artifact set. On a name collision the later predecessor in
// definition order wins.
type StructuralHandler struct{}

var _ Handler = &StructuralHandler{}

func (h *StructuralHandler) Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	now := time.Now()
	merged := make(map[string]string)
	for _, outcome := range inputs.Predecessors {
		for name, value := range outcome.Artifacts {
			merged[name] = value
		}
	}
	return &gantry.NodeOutcome{
		NodeID:      node.ID,
		Status:      gantry.OutcomeSuccess,
		Artifacts:   merged,
		StartedAt:   now,
		CompletedAt: now,
	}, nil
}
