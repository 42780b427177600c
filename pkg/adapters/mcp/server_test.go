package mcp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	names       []string
	result      domain.RunResult
	lastName    string
	lastTrigger domain.TriggerData
}

func (m *mockEngine) Run(ctx context.Context, name string, trigger domain.TriggerData, overrides map[string]domain.Values) domain.RunResult {
	m.lastName = name
	m.lastTrigger = trigger
	for _, n := range m.names {
		if n == name {
			return m.result
		}
	}
	return domain.FailedResult(fmt.Errorf("%w: %q", domain.ErrWorkflowNotFound, name))
}

func (m *mockEngine) Workflows() []string { return m.names }

func askEngine() *mockEngine {
	return &mockEngine{
		names: []string{"ask"},
		result: domain.RunResult{
			RunID:   "run-1",
			Success: true,
			Result:  domain.Values{domain.FieldAnswer: "Paris"},
			Steps: []domain.StepReport{
				{StepID: "prepare-query", Status: domain.StepCompleted},
				{StepID: "generate-answer", Status: domain.StepCompleted},
			},
		},
	}
}

func TestHandleAskDefaultsWorkflow(t *testing.T) {
	eng := askEngine()
	s := NewServer(eng)

	resp, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"query": "capital of France?",
	})
	require.NoError(t, err)

	assert.Equal(t, "ask", eng.lastName)
	assert.Equal(t, "capital of France?", eng.lastTrigger.Query)
	assert.Equal(t, "run-1", resp.RunID)
	assert.True(t, resp.Success)
	assert.False(t, resp.Degraded)
	assert.Equal(t, "Paris", resp.Answer)
	assert.Len(t, resp.Steps, 2)
}

func TestHandleAskReportsDegradation(t *testing.T) {
	eng := askEngine()
	eng.result.Steps[1] = domain.StepReport{
		StepID: "generate-answer",
		Status: domain.StepDegraded,
		Reason: domain.ReasonUnconfiguredAgent,
	}
	s := NewServer(eng)

	resp, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"query": "anything",
	})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
}

func TestHandleAskUnknownWorkflow(t *testing.T) {
	s := NewServer(askEngine())

	_, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"query":    "q",
		"workflow": "nope",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestHandleListRuns(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, id := range []string{"old", "new"} {
		rec := domain.RunRecord{ID: id, Workflow: "ask", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.Save(ctx, rec))
	}

	s := NewServer(askEngine(), WithRunStore(store))

	resp, err := s.handleListRuns(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "new", resp.Runs[0].ID)
	assert.Equal(t, "old", resp.Runs[1].ID)
}

func TestHandleListRunsWithoutStore(t *testing.T) {
	s := NewServer(askEngine())

	resp, err := s.handleListRuns(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, resp.Runs)
	assert.Empty(t, resp.Runs)
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := corsMiddleware(inner)

	// Preflight requests stop at the middleware.
	req := httptest.NewRequest("OPTIONS", "/sse", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// Other methods pass through with headers applied.
	req = httptest.NewRequest("GET", "/sse", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
