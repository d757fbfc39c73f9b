package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// Artifact names attached by workspace-backed handlers.
const (
	ArtifactChangedFiles = "changed_files"
	ArtifactDiff         = "diff"
)

// WorkspacePathKey is the context key under which workspace-backed handlers
// expose the node's isolated workspace path to the provider.
const WorkspacePathKey = "workspace_path"

// SoftwareHandler executes software-change nodes. The node works in an
// isolated workspace keyed by its id; on success the workspace is
// integrated into the shared result and the integration diff is attached
// as artifacts. Failed workspaces are left in place for inspection.
type SoftwareHandler struct {
	registry   *provider.Registry
	workspaces gantry.WorkspaceManager
	logger     slogger.Logger
}

var _ Handler = &SoftwareHandler{}

func (h *SoftwareHandler) Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	return executeInWorkspace(ctx, h.registry, h.workspaces, h.logger, node, inputs)
}

// executeInWorkspace is the shared workspace discipline for software and
// mixed nodes.
func executeInWorkspace(ctx context.Context, registry *provider.Registry, workspaces gantry.WorkspaceManager, logger slogger.Logger, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	if workspaces == nil {
		return nil, fmt.Errorf("node %q: no workspace manager configured", node.ID)
	}
	startedAt := time.Now()

	path, err := workspaces.Create(node.ID)
	if err != nil {
		return failedOutcome(node.ID, startedAt,
			fmt.Errorf("workspace creation failed: %w", err)), nil
	}

	outcome := invokeProvider(ctx, registry, node, inputs, map[string]string{
		WorkspacePathKey: path,
	})
	outcome.StartedAt = startedAt
	if outcome.Status != gantry.OutcomeSuccess {
		// Keep the workspace for inspection
		logger.Warn("node failed, workspace retained",
			"node_id", node.ID, "workspace", path, "error", outcome.Error)
		return outcome, nil
	}

	diff, err := workspaces.Integrate(node.ID)
	if err != nil {
		return failedOutcome(node.ID, startedAt,
			fmt.Errorf("workspace integration failed: %w", err)), nil
	}
	if outcome.Artifacts == nil {
		outcome.Artifacts = map[string]string{}
	}
	outcome.Artifacts[ArtifactChangedFiles] = strings.Join(diff.ChangedFiles, "\n")
	outcome.Artifacts[ArtifactDiff] = diff.UnifiedDiff
	outcome.CompletedAt = time.Now()
	logger.Info("workspace integrated",
		"node_id", node.ID, "changed_files", len(diff.ChangedFiles))
	return outcome, nil
}
