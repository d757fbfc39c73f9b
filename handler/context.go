package handler

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/deepnoodle-ai/gantry/graph"
)

// PrimaryArtifact is the artifact name every handler writes its main output
// under, and the one forwarded under minimal fidelity.
const PrimaryArtifact = "output"

// partialArtifactLimit bounds the size of each artifact forwarded under
// partial fidelity.
const partialArtifactLimit = 4000

// BuildContext assembles the upstream context forwarded to a node's
// provider invocation, according to the node's context fidelity mode.
// Context keys are "node.artifact" paths.
func BuildContext(node *graph.Node, inputs *Inputs) (map[string]string, error) {
	switch node.Fidelity {
	case graph.FidelityMinimal, "":
		return minimalContext(inputs), nil
	case graph.FidelityPartial:
		return partialContext(node, inputs)
	case graph.FidelityFull:
		return fullContext(inputs), nil
	default:
		return nil, fmt.Errorf("node %q: unknown context fidelity %q", node.ID, node.Fidelity)
	}
}

// minimalContext forwards only the immediate predecessor's primary
// artifact. With multiple predecessors the latest in definition order wins.
func minimalContext(inputs *Inputs) map[string]string {
	for i := len(inputs.Predecessors) - 1; i >= 0; i-- {
		outcome := inputs.Predecessors[i]
		if value, ok := outcome.Artifact(PrimaryArtifact); ok {
			return map[string]string{
				outcome.NodeID + "." + PrimaryArtifact: value,
			}
		}
	}
	return map[string]string{}
}

// partialContext forwards a bounded subset of all upstream artifacts: those
// matching the node's include patterns, truncated to a fixed size. Patterns
// match both the "node.artifact" path and the bare artifact name; a node
// with no patterns forwards every upstream artifact, truncated.
func partialContext(node *graph.Node, inputs *Inputs) (map[string]string, error) {
	matchers := make([]glob.Glob, 0, len(node.Include))
	for _, pattern := range node.Include {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("node %q: invalid include pattern %q: %w", node.ID, pattern, err)
		}
		matchers = append(matchers, g)
	}
	result := make(map[string]string)
	for _, outcome := range inputs.Upstream {
		for name, value := range outcome.Artifacts {
			path := outcome.NodeID + "." + name
			if !includes(matchers, path, name) {
				continue
			}
			result[path] = truncate(value, partialArtifactLimit)
		}
	}
	return result, nil
}

// fullContext forwards the complete upstream artifact set untruncated.
func fullContext(inputs *Inputs) map[string]string {
	result := make(map[string]string)
	for _, outcome := range inputs.Upstream {
		for name, value := range outcome.Artifacts {
			result[outcome.NodeID+"."+name] = value
		}
	}
	return result
}

func includes(matchers []glob.Glob, path, name string) bool {
	if len(matchers) == 0 {
		return true
	}
	for _, g := range matchers {
		if g.Match(path) || g.Match(name) {
			return true
		}
	}
	return false
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return strings.TrimSpace(value[:limit]) + "\n[truncated]"
}

// upstreamSignal resolves a bare artifact name against the node's direct
// predecessors in definition order, later definitions winning.
func upstreamSignal(inputs *Inputs, name string) (string, bool) {
	var value string
	var found bool
	for _, outcome := range inputs.Predecessors {
		if v, ok := outcome.Artifact(name); ok {
			value = v
			found = true
		}
	}
	return value, found
}
