package handler

import (
	"context"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// MixedHandler executes nodes that change code and produce prose in one
// step. It follows the software handler's workspace discipline while
// keeping the content handler's artifact parsing, so downstream nodes see
// both the drafted text and the integration diff.
type MixedHandler struct {
	registry   *provider.Registry
	workspaces gantry.WorkspaceManager
	logger     slogger.Logger
}

var _ Handler = &MixedHandler{}

func (h *MixedHandler) Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	return executeInWorkspace(ctx, h.registry, h.workspaces, h.logger, node, inputs)
}
