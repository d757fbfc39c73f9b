package handler

import (
	"context"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// ContentHandler executes content-generation nodes: it aggregates upstream
// source material per the node's fidelity mode, invokes the provider, and
// parses the drafted text into artifacts.
type ContentHandler struct {
	registry *provider.Registry
	logger   slogger.Logger
}

var _ Handler = &ContentHandler{}

func (h *ContentHandler) Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	outcome := invokeProvider(ctx, h.registry, node, inputs, nil)
	if outcome.Status == gantry.OutcomeFailure {
		h.logger.Warn("content node failed",
			"node_id", node.ID, "error", outcome.Error)
	}
	return outcome, nil
}
