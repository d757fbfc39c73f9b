package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// ComplexitySignal is the upstream artifact name a discovery node inspects
// to choose its investigation strategy.
const ComplexitySignal = "complexity"

// ArtifactStrategy records which strategy a discovery node chose.
const ArtifactStrategy = "strategy"

const (
	StrategyLight = "light"
	StrategyDeep  = "deep"
)

// deepComplexityThreshold is the numeric complexity at which discovery
// switches to the deep strategy.
const deepComplexityThreshold = 7.0

// DiscoveryHandler executes discovery nodes. It reads the complexity
// signal supplied by upstream nodes and chooses between a lightweight
// survey and a deep investigation, then invokes the provider with
// strategy-specific instructions.
type DiscoveryHandler struct {
	registry *provider.Registry
	logger   slogger.Logger
}

var _ Handler = &DiscoveryHandler{}

func (h *DiscoveryHandler) Execute(ctx context.Context, node *graph.Node, inputs *Inputs) (*gantry.NodeOutcome, error) {
	strategy := chooseStrategy(inputs)
	h.logger.Debug("discovery strategy chosen",
		"node_id", node.ID, "strategy", strategy)

	directed := *node
	directed.Prompt = node.Prompt + "\n\n" + strategyInstructions(strategy)

	outcome := invokeProvider(ctx, h.registry, &directed, inputs, nil)
	outcome.NodeID = node.ID
	if outcome.Status == gantry.OutcomeSuccess {
		outcome.Artifacts[ArtifactStrategy] = strategy
	}
	return outcome, nil
}

// chooseStrategy maps the upstream complexity signal to a strategy. The
// signal may be a label or a numeric score; anything absent or
// unrecognized gets the light strategy.
func chooseStrategy(inputs *Inputs) string {
	signal, found := upstreamSignal(inputs, ComplexitySignal)
	if !found {
		return StrategyLight
	}
	switch strings.ToLower(strings.TrimSpace(signal)) {
	case "high", "deep", "complex":
		return StrategyDeep
	case "low", "light", "simple", "medium":
		return StrategyLight
	}
	if score, err := strconv.ParseFloat(strings.TrimSpace(signal), 64); err == nil {
		if score >= deepComplexityThreshold {
			return StrategyDeep
		}
	}
	return StrategyLight
}

func strategyInstructions(strategy string) string {
	if strategy == StrategyDeep {
		return "Perform a deep investigation: trace the relevant code paths end to end, enumerate edge cases and failure modes, and report findings with supporting evidence."
	}
	return "Perform a lightweight survey: identify the relevant areas and summarize findings briefly."
}
