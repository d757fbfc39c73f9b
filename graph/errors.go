package graph

import (
	"fmt"
	"strings"
)

// CycleError indicates that a node is its own ancestor.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(e.Path, " -> "))
}

// DanglingEdgeError indicates that an edge references a node id that does
// not exist in the graph.
type DanglingEdgeError struct {
	From    string
	To      string
	Missing string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %q -> %q references unknown node %q", e.From, e.To, e.Missing)
}

// NoEntryError indicates that no node has zero in-degree, so the graph has
// no place to start.
type NoEntryError struct{}

func (e *NoEntryError) Error() string {
	return "graph has no entry node: every node has an incoming edge"
}
