package graph

import (
	"fmt"

	"github.com/deepnoodle-ai/gantry"
)

// NodeType distinguishes the kinds of work a node represents.
type NodeType string

const (
	NodeTypeTask      NodeType = "task"
	NodeTypeDiscovery NodeType = "discovery"
	NodeTypeGate      NodeType = "gate"
	NodeTypeFanOut    NodeType = "fan_out"
	NodeTypeFanIn     NodeType = "fan_in"
)

// DomainType selects which handler executes a node.
type DomainType string

const (
	DomainSoftware DomainType = "software"
	DomainContent  DomainType = "content"
	DomainMixed    DomainType = "mixed"
)

// ContextFidelity controls how much upstream output is forwarded as input to
// a node's execution. Minimal and Partial bound the context forwarded to
// cost- and latency-sensitive model calls; Full is for handoffs where
// correctness requires the complete upstream artifact set.
type ContextFidelity string

const (
	FidelityMinimal ContextFidelity = "minimal"
	FidelityPartial ContextFidelity = "partial"
	FidelityFull    ContextFidelity = "full"
)

// GateSpec holds the gate-only fields of a node: deterministic acceptance
// criteria, the upstream node re-dispatched when the gate fails, and the
// retry budget before the gate escalates.
type GateSpec struct {
	Criteria    []gantry.Criterion
	RetryTarget string
	MaxRetries  int
}

// Node is one unit of work in a workflow graph. Nodes are pure data; the
// engine and handlers give them behavior.
type Node struct {
	ID       string
	Type     NodeType
	Domain   DomainType
	Fidelity ContextFidelity
	Prompt   string
	Model    gantry.ModelConfig

	// Include restricts which upstream artifacts are forwarded under
	// partial fidelity, as glob patterns over artifact names.
	Include []string

	// Gate must be set when Type is NodeTypeGate and nil otherwise.
	Gate *GateSpec
}

func (n *Node) validate() error {
	if n.ID == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	switch n.Type {
	case NodeTypeTask, NodeTypeDiscovery, NodeTypeFanOut, NodeTypeFanIn:
		if n.Gate != nil {
			return fmt.Errorf("node %q: gate fields are only valid on gate nodes", n.ID)
		}
	case NodeTypeGate:
		if n.Gate == nil {
			return fmt.Errorf("node %q: gate node requires criteria", n.ID)
		}
		if len(n.Gate.Criteria) == 0 {
			return fmt.Errorf("node %q: gate node requires at least one criterion", n.ID)
		}
		if n.Gate.MaxRetries < 0 {
			return fmt.Errorf("node %q: max retries cannot be negative", n.ID)
		}
		for _, criterion := range n.Gate.Criteria {
			if criterion.Field == "" {
				return fmt.Errorf("node %q: criterion field cannot be empty", n.ID)
			}
			if !criterion.Op.Valid() {
				return fmt.Errorf("node %q: unknown criterion operator %q", n.ID, criterion.Op)
			}
		}
	default:
		return fmt.Errorf("node %q: unknown node type %q", n.ID, n.Type)
	}
	return nil
}
