package config

// Definition is the serializable form of a workflow graph.
type Definition struct {
	Name        string `yaml:"Name,omitempty" json:"Name,omitempty"`
	Description string `yaml:"Description,omitempty" json:"Description,omitempty"`
	Nodes       []Node `yaml:"Nodes" json:"Nodes" validate:"required,min=1,dive"`
	Edges       []Edge `yaml:"Edges,omitempty" json:"Edges,omitempty" validate:"dive"`
}

// Node is the serializable form of one graph node. Model selection is
// either a stylesheet class name or an inline model block; inline wins
// when both are present.
type Node struct {
	ID       string   `yaml:"ID" json:"ID" validate:"required"`
	Type     string   `yaml:"Type" json:"Type" validate:"required,oneof=task discovery gate fan_out fan_in"`
	Domain   string   `yaml:"Domain,omitempty" json:"Domain,omitempty" validate:"omitempty,oneof=software content mixed"`
	Fidelity string   `yaml:"Fidelity,omitempty" json:"Fidelity,omitempty" validate:"omitempty,oneof=minimal partial full"`
	Prompt   string   `yaml:"Prompt,omitempty" json:"Prompt,omitempty"`
	Class    string   `yaml:"Class,omitempty" json:"Class,omitempty"`
	Model    *Model   `yaml:"Model,omitempty" json:"Model,omitempty"`
	Include  []string `yaml:"Include,omitempty" json:"Include,omitempty"`
	Gate     *Gate    `yaml:"Gate,omitempty" json:"Gate,omitempty"`
}

// Edge is the serializable form of a dependency edge.
type Edge struct {
	From      string `yaml:"From" json:"From" validate:"required"`
	To        string `yaml:"To" json:"To" validate:"required"`
	Condition string `yaml:"Condition,omitempty" json:"Condition,omitempty" validate:"omitempty,oneof=passed failed"`
}

// Gate holds the gate-only fields of a node definition.
type Gate struct {
	Criteria    []Criterion `yaml:"Criteria" json:"Criteria" validate:"required,min=1,dive"`
	RetryTarget string      `yaml:"RetryTarget,omitempty" json:"RetryTarget,omitempty"`
	MaxRetries  int         `yaml:"MaxRetries,omitempty" json:"MaxRetries,omitempty" validate:"gte=0"`
}

// Criterion is one deterministic acceptance criterion.
type Criterion struct {
	Field    string `yaml:"Field" json:"Field" validate:"required"`
	Op       string `yaml:"Op" json:"Op" validate:"required,oneof=equals not_equals greater_than greater_or_equal less_than less_or_equal contains"`
	Expected string `yaml:"Expected" json:"Expected"`
}

// Model configures one model invocation target. Timeout is a duration
// string such as "90s".
type Model struct {
	Provider        string     `yaml:"Provider" json:"Provider" validate:"required"`
	Model           string     `yaml:"Model" json:"Model" validate:"required"`
	ReasoningEffort string     `yaml:"ReasoningEffort,omitempty" json:"ReasoningEffort,omitempty" validate:"omitempty,oneof=low medium high"`
	ToolProfile     string     `yaml:"ToolProfile,omitempty" json:"ToolProfile,omitempty"`
	Timeout         string     `yaml:"Timeout,omitempty" json:"Timeout,omitempty"`
	Fallbacks       []ModelRef `yaml:"Fallbacks,omitempty" json:"Fallbacks,omitempty" validate:"dive"`
}

// ModelRef is one provider/model pair in a fallback chain.
type ModelRef struct {
	Provider string `yaml:"Provider" json:"Provider" validate:"required"`
	Model    string `yaml:"Model" json:"Model" validate:"required"`
}

// Stylesheet maps model class names to model configurations, so graph
// definitions can say "fast" or "thorough" instead of repeating provider
// blocks. Default names the class used by nodes that specify neither a
// class nor an inline model.
type Stylesheet struct {
	Default string           `yaml:"Default,omitempty" json:"Default,omitempty"`
	Classes map[string]Model `yaml:"Classes" json:"Classes" validate:"required,min=1,dive"`
}
