// Agent configuration types.

package agent

import (
	"github.com/richinex/basetag/tools"
)

// DefaultMaxIterations bounds the model calls of one turn.
const DefaultMaxIterations = 10

// Config holds agent configuration.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string

	// Description explains what this agent does.
	Description string

	// SystemPrompt is sent ahead of the history on every model call.
	SystemPrompt string

	// Tools available to this agent.
	Tools []tools.Tool

	// MaxIterations caps model calls per turn; zero selects DefaultMaxIterations.
	MaxIterations int

	// ToolConfig controls tool execution.
	ToolConfig tools.ToolConfig
}

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:          "agent",
		Description:   "A general-purpose agent",
		SystemPrompt:  "You are a helpful assistant.",
		Tools:         []tools.Tool{},
		MaxIterations: DefaultMaxIterations,
	}
}

// HasTools returns true if the agent has tools configured.
func (c *Config) HasTools() bool {
	return len(c.Tools) > 0
}

func (c *Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}
