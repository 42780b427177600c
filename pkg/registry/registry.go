// Package registry provides an in-process ports.ToolSource: tools registered
// as Go functions, no subprocess involved. It backs the builtin tools and
// serves as the test double for agent tool calling.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a textual result
// or an error.
type ToolFunction func(ctx context.Context, args map[string]any) (string, error)

type entry struct {
	tool domain.Tool
	fn   ToolFunction
}

// Registry manages the available tools.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

var _ ports.ToolSource = (*Registry)(nil)

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(tool domain.Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.entries[tool.Name] = entry{tool: tool, fn: fn}
}

// Tools lists the registered tool definitions in registration order.
func (r *Registry) Tools(ctx context.Context) ([]domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool)
	}
	return out, nil
}

// Call looks up a tool by name and executes it.
// Returns an error if the tool is not found.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	return e.fn(ctx, args)
}

// Close implements ports.ToolSource. In-process tools hold no resources.
func (r *Registry) Close() error { return nil }
