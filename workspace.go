package gantry

// WorkspaceDiff summarizes the changes a workspace integration applied to
// the shared result tree.
type WorkspaceDiff struct {
	ChangedFiles []string
	UnifiedDiff  string
}

// WorkspaceManager is the version-control collaborator used by
// software-domain nodes. Each node gets an isolated workspace keyed by its
// node id; successful work is integrated back into the shared result, while
// failed workspaces are kept for inspection.
type WorkspaceManager interface {
	// Create makes an isolated workspace for the node and returns its
	// filesystem path.
	Create(nodeID string) (path string, err error)

	// Integrate merges the workspace's changes into the shared result and
	// removes the workspace.
	Integrate(nodeID string) (*WorkspaceDiff, error)

	// Discard removes the workspace without integrating it.
	Discard(nodeID string) error
}
