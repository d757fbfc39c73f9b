package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
)

// invokeProvider runs the node's prompt through the provider fallback chain
// and converts the response, or the chain's final failure, into an outcome.
// The extra context entries are merged over the fidelity-derived context.
func invokeProvider(ctx context.Context, registry *provider.Registry, node *graph.Node, inputs *Inputs, extra map[string]string) *gantry.NodeOutcome {
	startedAt := time.Now()

	requestContext, err := BuildContext(node, inputs)
	if err != nil {
		return failedOutcome(node.ID, startedAt, err)
	}
	for name, value := range extra {
		requestContext[name] = value
	}

	response, err := registry.Invoke(ctx, node.Model, &gantry.ProviderRequest{
		Prompt:  node.Prompt,
		Context: requestContext,
	})
	if err != nil {
		return failedOutcome(node.ID, startedAt, err)
	}
	return successOutcome(node.ID, startedAt, parseArtifacts(response))
}

// parseArtifacts maps a provider response to named artifacts. The raw
// output always lands under the primary artifact name; structured fields
// the provider extracted become artifacts of their own.
func parseArtifacts(response *gantry.ProviderResponse) map[string]string {
	artifacts := map[string]string{PrimaryArtifact: response.Output}
	for name, value := range response.Fields {
		switch v := value.(type) {
		case string:
			artifacts[name] = v
		case bool:
			artifacts[name] = fmt.Sprintf("%t", v)
		case float64:
			artifacts[name] = formatNumber(v)
		default:
			artifacts[name] = fmt.Sprintf("%v", v)
		}
	}
	return artifacts
}

// formatNumber renders JSON numbers without a trailing ".000000" for
// integral values so gate comparisons read naturally.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func successOutcome(nodeID string, startedAt time.Time, artifacts map[string]string) *gantry.NodeOutcome {
	return &gantry.NodeOutcome{
		NodeID:      nodeID,
		Status:      gantry.OutcomeSuccess,
		Artifacts:   artifacts,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
}

func failedOutcome(nodeID string, startedAt time.Time, err error) *gantry.NodeOutcome {
	return &gantry.NodeOutcome{
		NodeID:      nodeID,
		Status:      gantry.OutcomeFailure,
		Error:       err.Error(),
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
}
