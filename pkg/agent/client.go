// Package agent implements ports.Generator against OpenAI-compatible chat
// completion APIs, with optional tool calling resolved through a
// ports.ToolSource.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

const defaultModel = "gpt-4o"

// PlaceholderAPIKey is the unconfigured-credential sentinel. A config still
// carrying it is treated the same as an empty key.
const PlaceholderAPIKey = "your-api-key"

// maxToolRounds bounds the tool-call loop per generation. A model that keeps
// requesting tools past this is cut off with an error.
const maxToolRounds = 4

// Config carries the credential and model parameters for one client.
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	Instructions string
	Temperature  float64
	MaxTokens    int
}

// Client is an OpenAI-compatible chat completions client implementing
// ports.Generator.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tools      ports.ToolSource
	defs       []chatTool
}

var _ ports.Generator = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithToolSource attaches a tool source. Definitions are fetched once during
// New; Call resolves tool invocations during generation.
func WithToolSource(tools ports.ToolSource) Option {
	return func(c *Client) {
		c.tools = tools
	}
}

// New builds a client. It returns ports.ErrUnconfigured when the key is
// empty or still the placeholder, so callers can fall back to the canned
// answer instead of issuing calls that are known to fail.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" || cfg.APIKey == PlaceholderAPIKey {
		return nil, fmt.Errorf("model api key: %w", ports.ErrUnconfigured)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	} else if !strings.HasSuffix(baseURL, "/chat/completions") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tools != nil {
		defs, err := c.tools.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tools: %w", err)
		}
		c.defs = convertTools(defs)
		c.logger.Debug("agent tools ready", "count", len(c.defs))
	}

	return c, nil
}

// Generate runs one exchange, resolving tool calls through the attached
// source until the model answers with text or the round bound is hit.
func (c *Client) Generate(ctx context.Context, messages []ports.Message) (ports.Reply, error) {
	convo := make([]chatMessage, 0, len(messages)+1)
	if c.cfg.Instructions != "" {
		convo = append(convo, chatMessage{Role: ports.RoleSystem, Content: c.cfg.Instructions})
	}
	for _, m := range messages {
		convo = append(convo, chatMessage{Role: m.Role, Content: m.Content})
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := c.complete(ctx, convo)
		if err != nil {
			return ports.Reply{}, err
		}
		if len(resp.Choices) == 0 {
			return ports.Reply{}, fmt.Errorf("empty response: no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return ports.Reply{Text: msg.Content}, nil
		}

		convo = append(convo, msg)
		for _, call := range msg.ToolCalls {
			convo = append(convo, chatMessage{
				Role:       "tool",
				Content:    c.runTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return ports.Reply{}, fmt.Errorf("exceeded %d tool call rounds", maxToolRounds)
}

// runTool executes one tool call. Failures become result strings so the
// model can see and recover from them; only transport problems with the API
// itself abort a generation.
func (c *Client) runTool(ctx context.Context, call chatToolCall) string {
	if c.tools == nil {
		return fmt.Sprintf(`{"error": "no tool source for %s"}`, call.Function.Name)
	}

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			c.logger.Warn("bad tool arguments", "tool", call.Function.Name, "err", err)
			return fmt.Sprintf(`{"error": "invalid arguments: %s"}`, err)
		}
	}

	result, err := c.tools.Call(ctx, call.Function.Name, args)
	if err != nil {
		c.logger.Warn("tool call failed", "tool", call.Function.Name, "err", err)
		return fmt.Sprintf(`{"error": "%s"}`, err)
	}
	return result
}

func (c *Client) complete(ctx context.Context, convo []chatMessage) (*chatResponse, error) {
	maxTokens := c.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    convo,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
		Tools:       c.defs,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	return &parsed, nil
}

func convertTools(defs []domain.Tool) []chatTool {
	out := make([]chatTool, 0, len(defs))
	for _, t := range defs {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
