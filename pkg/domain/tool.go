package domain

// Tool describes a callable capability offered to the agent. Parameters is a
// JSON-Schema shaped description of the tool's arguments, compatible with
// OpenAI and MCP tool definitions.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}
