// Package tools connects furrow to an external MCP tool server over stdio.
// The hub owns the child process: it launches the configured command,
// performs the initialize handshake, caches the advertised tool list, and
// routes tool calls until closed.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

const (
	// listTimeout bounds the tool discovery call right after the handshake.
	listTimeout = 5 * time.Second

	// callTimeout bounds a single tool execution.
	callTimeout = 60 * time.Second
)

// Config describes the MCP server launcher.
type Config struct {
	Command string
	Args    []string

	// Env holds extra KEY=VALUE entries appended to the child's inherited
	// environment (e.g. the search credential).
	Env []string
}

// Hub is a ports.ToolSource backed by one MCP server subprocess.
type Hub struct {
	logger *slog.Logger
	client *client.Client
	tools  []domain.Tool

	closeOnce sync.Once
	closeErr  error
}

var _ ports.ToolSource = (*Hub)(nil)

// Option configures the hub.
type Option func(*Hub)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Connect launches the configured MCP server, runs the initialize handshake
// and fetches the tool list. The returned hub must be closed to terminate
// the child process.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Hub, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("tool launcher command is empty")
	}

	h := &Hub{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	cli, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", cfg.Command, err)
	}
	h.client = cli

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "furrow",
		Version: strings.TrimSpace(furrow.Version),
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	listed, err := cli.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	h.tools = convertTools(listed.Tools)
	h.logger.Info("tool hub connected", "command", cfg.Command, "tools", len(h.tools))

	return h, nil
}

// Tools returns the tool list advertised at connect time.
func (h *Hub) Tools(ctx context.Context) ([]domain.Tool, error) {
	out := make([]domain.Tool, len(h.tools))
	copy(out, h.tools)
	return out, nil
}

// Call executes a tool on the connected server and returns its text content.
// A result flagged as an error by the server becomes a Go error.
func (h *Hub) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	if !h.has(name) {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := h.client.CallTool(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", name, err)
	}

	text := textContent(res)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// Close terminates the MCP server subprocess. Safe to call more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		if h.client != nil {
			h.closeErr = h.client.Close()
		}
	})
	return h.closeErr
}

func (h *Hub) has(name string) bool {
	for _, t := range h.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// convertTools maps MCP tool descriptors onto domain tools. The input schema
// goes through a JSON round trip so the result is a plain map regardless of
// how the library models it.
func convertTools(in []mcp.Tool) []domain.Tool {
	out := make([]domain.Tool, 0, len(in))
	for _, t := range in {
		var params map[string]any
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			_ = json.Unmarshal(raw, &params)
		}
		out = append(out, domain.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return out
}

// textContent concatenates the text blocks of a tool result.
func textContent(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
