package config

import (
	"fmt"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
)

// Build converts a parsed definition into a validated graph. The
// stylesheet resolves model class names; it may be nil when every node
// carries an inline model.
func Build(definition *Definition, stylesheet *Stylesheet) (*graph.Graph, error) {
	nodes := make([]*graph.Node, 0, len(definition.Nodes))
	for _, nodeDef := range definition.Nodes {
		node, err := buildNode(nodeDef, stylesheet)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	edges := make([]graph.Edge, 0, len(definition.Edges))
	for _, edgeDef := range definition.Edges {
		edges = append(edges, graph.Edge{
			From:      edgeDef.From,
			To:        edgeDef.To,
			Condition: graph.Condition(edgeDef.Condition),
		})
	}
	g, err := graph.New(nodes, edges)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func buildNode(nodeDef Node, stylesheet *Stylesheet) (*graph.Node, error) {
	node := &graph.Node{
		ID:       nodeDef.ID,
		Type:     graph.NodeType(nodeDef.Type),
		Domain:   graph.DomainType(nodeDef.Domain),
		Fidelity: graph.ContextFidelity(nodeDef.Fidelity),
		Prompt:   nodeDef.Prompt,
		Include:  nodeDef.Include,
	}
	if node.Type == graph.NodeTypeTask && node.Domain == "" {
		return nil, fmt.Errorf("node %q: task nodes require a domain", nodeDef.ID)
	}
	if nodeDef.Gate != nil {
		node.Gate = buildGate(nodeDef.Gate)
	}
	if executable(node.Type) {
		model, err := resolveModel(nodeDef, stylesheet)
		if err != nil {
			return nil, err
		}
		node.Model = *model
	}
	return node, nil
}

// executable reports whether the node type invokes a provider and so needs
// a model configuration.
func executable(t graph.NodeType) bool {
	switch t {
	case graph.NodeTypeTask, graph.NodeTypeDiscovery:
		return true
	}
	return false
}

func buildGate(gateDef *Gate) *graph.GateSpec {
	criteria := make([]gantry.Criterion, 0, len(gateDef.Criteria))
	for _, criterionDef := range gateDef.Criteria {
		criteria = append(criteria, gantry.Criterion{
			Field:    criterionDef.Field,
			Op:       gantry.CompareOp(criterionDef.Op),
			Expected: criterionDef.Expected,
		})
	}
	return &graph.GateSpec{
		Criteria:    criteria,
		RetryTarget: gateDef.RetryTarget,
		MaxRetries:  gateDef.MaxRetries,
	}
}

// resolveModel picks the node's model configuration: an inline model block
// wins over a class reference, which wins over the stylesheet default.
func resolveModel(nodeDef Node, stylesheet *Stylesheet) (*gantry.ModelConfig, error) {
	if nodeDef.Model != nil {
		return convertModel(nodeDef.ID, *nodeDef.Model)
	}
	class := nodeDef.Class
	if class == "" && stylesheet != nil {
		class = stylesheet.Default
	}
	if class == "" {
		return nil, fmt.Errorf("node %q: no model class or inline model configured", nodeDef.ID)
	}
	if stylesheet == nil {
		return nil, fmt.Errorf("node %q: model class %q referenced but no stylesheet loaded", nodeDef.ID, class)
	}
	model, ok := stylesheet.Classes[class]
	if !ok {
		return nil, fmt.Errorf("node %q: unknown model class %q", nodeDef.ID, class)
	}
	return convertModel(nodeDef.ID, model)
}

func convertModel(nodeID string, modelDef Model) (*gantry.ModelConfig, error) {
	cfg := &gantry.ModelConfig{
		Provider:        modelDef.Provider,
		Model:           modelDef.Model,
		ReasoningEffort: gantry.ReasoningEffort(modelDef.ReasoningEffort),
		ToolProfile:     modelDef.ToolProfile,
	}
	if modelDef.Timeout != "" {
		timeout, err := time.ParseDuration(modelDef.Timeout)
		if err != nil {
			return nil, fmt.Errorf("node %q: invalid timeout %q: %w", nodeID, modelDef.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	for _, ref := range modelDef.Fallbacks {
		cfg.Fallbacks = append(cfg.Fallbacks, gantry.ModelRef{
			Provider: ref.Provider,
			Model:    ref.Model,
		})
	}
	return cfg, nil
}

// Load parses a definition file and an optional stylesheet file and builds
// the graph in one step.
func Load(definitionPath, stylesheetPath string) (*graph.Graph, error) {
	definition, err := ParseDefinitionFile(definitionPath)
	if err != nil {
		return nil, fmt.Errorf("error loading graph definition: %w", err)
	}
	var stylesheet *Stylesheet
	if stylesheetPath != "" {
		stylesheet, err = ParseStylesheetFile(stylesheetPath)
		if err != nil {
			return nil, fmt.Errorf("error loading stylesheet: %w", err)
		}
	}
	return Build(definition, stylesheet)
}
