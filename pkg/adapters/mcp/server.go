// Package mcp exposes the engine to MCP clients: an ask tool running
// workflows, a list_runs tool over the archive, and a workflow registry
// resource, served over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AskResponse aligns with the HTTP API's run result shape so MCP clients and
// REST clients see the same structure.
type AskResponse struct {
	RunID    string              `json:"run_id,omitempty" jsonschema_description:"Identifier of the archived run"`
	Success  bool                `json:"success" jsonschema_description:"False only for structural failures"`
	Degraded bool                `json:"degraded" jsonschema_description:"True when any step fell back to a substitute output"`
	Answer   string              `json:"answer" jsonschema_description:"The final answer text"`
	Steps    []domain.StepReport `json:"steps,omitempty" jsonschema_description:"Per-step execution reports"`
}

// ListRunsResponse wraps the archive listing.
type ListRunsResponse struct {
	Runs []domain.RunRecord `json:"runs" jsonschema_description:"Archived runs, newest first"`
}

// Engine is the slice of the furrow engine the MCP adapter drives.
type Engine interface {
	Run(ctx context.Context, name string, trigger domain.TriggerData, overrides map[string]domain.Values) domain.RunResult
	Workflows() []string
}

// Server wraps the furrow Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	store     ports.RunStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option defines a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunStore attaches the archive backing the list_runs tool. Without one
// the tool serves empty listings.
func WithRunStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("furrow-mcp", strings.TrimSpace(furrow.Version))
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks until the
// context is cancelled or the listener fails.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: ask
	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Run a workflow and return the answer. Recoverable problems degrade the answer instead of failing the run."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithString("workflow", mcp.Description("Workflow name (defaults to ask)")),
		mcp.WithOutputSchema[AskResponse](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	// TOOL: list_runs
	listTool := mcp.NewTool("list_runs",
		mcp.WithDescription("List archived runs, newest first."),
		mcp.WithOutputSchema[ListRunsResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListRuns))
}

// Handler methods for structured tools

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AskResponse, error) {
	query, _ := args["query"].(string)
	name, _ := args["workflow"].(string)
	if name == "" {
		name = furrow.DefaultWorkflowName
	}

	result := s.engine.Run(ctx, name, domain.TriggerData{Query: query}, nil)
	if !result.Success {
		return AskResponse{}, fmt.Errorf("run failed: %s", result.Error)
	}

	return AskResponse{
		RunID:    result.RunID,
		Success:  result.Success,
		Degraded: result.Degraded(),
		Answer:   result.Answer(),
		Steps:    result.Steps,
	}, nil
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ListRunsResponse, error) {
	if s.store == nil {
		return ListRunsResponse{Runs: []domain.RunRecord{}}, nil
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return ListRunsResponse{}, fmt.Errorf("listing runs: %w", err)
	}
	if records == nil {
		records = []domain.RunRecord{}
	}
	return ListRunsResponse{Runs: records}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: furrow://workflows
	s.mcpServer.AddResource(mcp.NewResource("furrow://workflows", "Registered Workflows",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Workflows())
		if err != nil {
			return nil, fmt.Errorf("encoding workflow names: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "furrow://workflows",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
