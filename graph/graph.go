// Package graph models workflow topology: nodes, directed edges, and edge
// conditions. A Graph is validated once and never mutated; readiness is
// computed against externally-held run state so the model itself stays pure.
package graph

import (
	"fmt"

	"github.com/deepnoodle-ai/gantry"
)

// Graph is an immutable, validated description of a workflow. Node order
// follows definition order, which is also the dispatch tie-break for
// simultaneously ready nodes, keeping runs deterministic and reproducible
// under identical checkpoints.
type Graph struct {
	nodes    []*Node
	edges    []Edge
	byID     map[string]*Node
	incoming map[string][]Edge
	outgoing map[string][]Edge
}

// New creates a graph from nodes and edges. The node slice's order is
// preserved as the graph's definition order.
func New(nodes []*Node, edges []Edge) (*Graph, error) {
	byID := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		if _, exists := byID[node.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %q", node.ID)
		}
		byID[node.ID] = node
	}
	g := &Graph{
		nodes:    nodes,
		edges:    edges,
		byID:     byID,
		incoming: make(map[string][]Edge),
		outgoing: make(map[string][]Edge),
	}
	for _, edge := range edges {
		g.incoming[edge.To] = append(g.incoming[edge.To], edge)
		g.outgoing[edge.From] = append(g.outgoing[edge.From], edge)
	}
	return g, nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.byID[id]
	return node, ok
}

// Nodes returns all nodes in definition order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Incoming returns the edges arriving at the given node.
func (g *Graph) Incoming(id string) []Edge {
	return g.incoming[id]
}

// Outgoing returns the edges leaving the given node.
func (g *Graph) Outgoing(id string) []Edge {
	return g.outgoing[id]
}

// Roots returns the nodes with zero in-degree, in definition order.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, node := range g.nodes {
		if len(g.incoming[node.ID]) == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}

// Validate checks the graph invariants: every node is well formed, every
// edge references existing nodes, at least one node has zero in-degree, and
// no node is its own ancestor. Validation errors are fatal; the engine never
// starts a run on an invalid graph.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph must have at least one node")
	}
	for _, node := range g.nodes {
		if err := node.validate(); err != nil {
			return err
		}
		if node.Type == NodeTypeGate && node.Gate.RetryTarget != "" {
			if _, ok := g.byID[node.Gate.RetryTarget]; !ok {
				return fmt.Errorf("node %q: retry target %q does not exist", node.ID, node.Gate.RetryTarget)
			}
		}
	}
	for _, edge := range g.edges {
		if err := edge.validate(); err != nil {
			return err
		}
		if _, ok := g.byID[edge.From]; !ok {
			return &DanglingEdgeError{From: edge.From, To: edge.To, Missing: edge.From}
		}
		if _, ok := g.byID[edge.To]; !ok {
			return &DanglingEdgeError{From: edge.From, To: edge.To, Missing: edge.To}
		}
	}
	if len(g.Roots()) == 0 {
		return &NoEntryError{}
	}
	return g.checkAcyclic()
}

// checkAcyclic runs a depth-first traversal tracking visiting/visited sets.
func (g *Graph) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			// Trim the stack to the start of the cycle for the error path.
			start := 0
			for i, seen := range stack {
				if seen == id {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), id)
			return &CycleError{Path: path}
		}
		state[id] = visiting
		stack = append(stack, id)
		for _, edge := range g.outgoing[id] {
			if err := visit(edge.To); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = visited
		return nil
	}

	for _, node := range g.nodes {
		if err := visit(node.ID); err != nil {
			return err
		}
	}
	return nil
}

// ReadyNodes returns the nodes whose every incoming edge is satisfied by the
// given outcomes and whose own outcome is not yet recorded, in definition
// order. Multiple incoming edges always use AND semantics; there is no
// implicit OR, and fan-in nodes therefore wait for all predecessors.
func (g *Graph) ReadyNodes(outcomes map[string]*gantry.NodeOutcome) []*Node {
	var ready []*Node
	for _, node := range g.nodes {
		if _, done := outcomes[node.ID]; done {
			continue
		}
		satisfied := true
		for _, edge := range g.incoming[node.ID] {
			if !edge.Satisfied(outcomes[edge.From]) {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, node)
		}
	}
	return ready
}

// Predecessors returns the direct upstream nodes of the given node, in
// definition order.
func (g *Graph) Predecessors(id string) []*Node {
	sources := make(map[string]bool, len(g.incoming[id]))
	for _, edge := range g.incoming[id] {
		sources[edge.From] = true
	}
	var preds []*Node
	for _, node := range g.nodes {
		if sources[node.ID] {
			preds = append(preds, node)
		}
	}
	return preds
}

// Ancestors returns every transitive upstream node of the given node, in
// definition order.
func (g *Graph) Ancestors(id string) []*Node {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, edge := range g.incoming[id] {
			if !seen[edge.From] {
				seen[edge.From] = true
				walk(edge.From)
			}
		}
	}
	walk(id)
	var ancestors []*Node
	for _, node := range g.nodes {
		if seen[node.ID] {
			ancestors = append(ancestors, node)
		}
	}
	return ancestors
}
