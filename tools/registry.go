package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/richinex/basetag/llm"
)

// Registry maps tool names to tools. Names are also kept in a radix tree so
// operators can address a tool by a unique prefix.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	index *radix.Tree
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		index: radix.New(),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	r.index.Insert(name, tool)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Match returns the tool named name, or the only tool whose name starts
// with it.
func (r *Registry) Match(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tool, ok := r.tools[name]; ok {
		return tool, nil
	}

	var matches []string
	if name != "" {
		r.index.WalkPrefix(name, func(k string, v interface{}) bool {
			matches = append(matches, k)
			return false
		})
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("unknown tool: %s", name)
	case 1:
		return r.tools[matches[0]], nil
	default:
		return nil, fmt.Errorf("ambiguous tool %q: matches %s", name, strings.Join(matches, ", "))
	}
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools, sorted by name.
func (r *Registry) List() []ToolMetadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			metadata = append(metadata, tool.Metadata())
		}
	}
	return metadata
}

// Definitions returns the tool table in the shape providers send to models.
func (r *Registry) Definitions() []llm.ToolDefinition {
	list := r.List()
	defs := make([]llm.ToolDefinition, 0, len(list))
	for _, meta := range list {
		defs = append(defs, llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  meta.Schema(),
		})
	}
	return defs
}

// Description returns a human-readable listing of all tools.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.ParamType, p.Description, required))
		}

		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, strings.Join(params, "\n")))
	}

	return strings.Join(descriptions, "\n\n")
}

// NewRegistryWith registers every tool, failing on the first duplicate.
func NewRegistryWith(toolList ...Tool) (*Registry, error) {
	registry := NewRegistry()
	for _, t := range toolList {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}
	return registry, nil
}
