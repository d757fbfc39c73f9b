package gantry

import "context"

// ProviderRequest carries the prompt and assembled upstream context for one
// model invocation.
type ProviderRequest struct {
	Prompt          string
	Context         map[string]string
	Model           string
	ReasoningEffort ReasoningEffort
	ToolProfile     string
}

// ProviderResponse is the raw output of a model invocation plus any
// structured fields the provider was able to parse from it.
type ProviderResponse struct {
	Output string
	Fields map[string]any
}

// Provider is an injected model-invocation capability. The engine and its
// node handlers call providers; they never implement one.
type Provider interface {
	// Name returns the provider identifier used in model configurations.
	Name() string

	// Invoke sends the request to the underlying model and returns its
	// response. Implementations must honor context cancellation.
	Invoke(ctx context.Context, request *ProviderRequest) (*ProviderResponse, error)
}
