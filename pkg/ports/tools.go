package ports

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
)

// ToolSource supplies callable tools to the agent. Definitions are consumed
// once during agent construction; Call executes a tool by name during a
// generation exchange.
type ToolSource interface {
	// Tools lists the available tool definitions.
	Tools(ctx context.Context) ([]domain.Tool, error)

	// Call executes the named tool with the given arguments and returns its
	// textual result.
	Call(ctx context.Context, name string, args map[string]any) (string, error)

	// Close releases any resources held by the source (e.g. a child
	// process). Safe to call more than once.
	Close() error
}
