// Package handler contains the node executors. Each handler prepares input
// context from upstream outcomes, invokes a model provider, and parses the
// provider's output into named artifacts. Handlers never touch run state;
// they return outcomes to the engine, which owns checkpointing.
package handler

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// Inputs carries the upstream outcomes available to a node's execution, in
// graph definition order. Predecessors are the node's direct dependencies;
// Upstream is the full transitive ancestor set.
type Inputs struct {
	Predecessors []*gantry.NodeOutcome
	Upstream     []*gantry.NodeOutcome
}

// Handler executes one node and reports its outcome. Provider and
// infrastructure failures are contained in the outcome, not returned as
// errors: a non-nil error means the handler itself could not run.
type Handler interface {
	Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error)
}

// Set holds one handler per executable node shape and selects among them.
type Set struct {
	software   Handler
	content    Handler
	mixed      Handler
	discovery  Handler
	structural Handler
}

// SetOptions configures a handler set.
type SetOptions struct {
	Registry   *provider.Registry
	Workspaces gantry.WorkspaceManager
	Logger     slogger.Logger
}

// NewSet builds the standard handler set. Workspaces may be nil when the
// graph has no software or mixed nodes.
func NewSet(opts SetOptions) (*Set, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &Set{
		software: &SoftwareHandler{
			registry:   opts.Registry,
			workspaces: opts.Workspaces,
			logger:     logger,
		},
		content: &ContentHandler{
			registry: opts.Registry,
			logger:   logger,
		},
		mixed: &MixedHandler{
			registry:   opts.Registry,
			workspaces: opts.Workspaces,
			logger:     logger,
		},
		discovery: &DiscoveryHandler{
			registry: opts.Registry,
			logger:   logger,
		},
		structural: &StructuralHandler{},
	}, nil
}

// For selects the handler for a node. Gate nodes have no handler; the
// engine evaluates them directly.
func (s *Set) For(node *graph.Node) (Handler, error) {
	switch node.Type {
	case graph.NodeTypeDiscovery:
		return s.discovery, nil
	case graph.NodeTypeFanOut, graph.NodeTypeFanIn:
		return s.structural, nil
	case graph.NodeTypeGate:
		return nil, fmt.Errorf("gate node %q is evaluated by the engine, not a handler", node.ID)
	case graph.NodeTypeTask:
		switch node.Domain {
		case graph.DomainSoftware:
			return s.software, nil
		case graph.DomainContent:
			return s.content, nil
		case graph.DomainMixed:
			return s.mixed, nil
		default:
			return nil, fmt.Errorf("node %q: unknown domain %q", node.ID, node.Domain)
		}
	default:
		return nil, fmt.Errorf("node %q: unknown node type %q", node.ID, node.Type)
	}
}
