package gantry

import "time"

// ReasoningEffort controls how much reasoning a model applies to a request.
type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// ModelRef names one provider/model pair in a fallback chain.
type ModelRef struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// ModelConfig selects the model used to execute a node, along with invocation
// limits and an ordered fallback chain tried after the primary fails.
type ModelConfig struct {
	Provider        string          `json:"provider" yaml:"provider"`
	Model           string          `json:"model" yaml:"model"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty" yaml:"reasoning_effort"`
	ToolProfile     string          `json:"tool_profile,omitempty" yaml:"tool_profile"`
	Timeout         time.Duration   `json:"timeout,omitempty" yaml:"timeout"`
	Fallbacks       []ModelRef      `json:"fallbacks,omitempty" yaml:"fallbacks"`
}

// Primary returns the primary provider/model pair.
func (c ModelConfig) Primary() ModelRef {
	return ModelRef{Provider: c.Provider, Model: c.Model}
}

// Chain returns the primary reference followed by the fallbacks, in the order
// they should be attempted.
func (c ModelConfig) Chain() []ModelRef {
	chain := make([]ModelRef, 0, len(c.Fallbacks)+1)
	chain = append(chain, c.Primary())
	chain = append(chain, c.Fallbacks...)
	return chain
}
