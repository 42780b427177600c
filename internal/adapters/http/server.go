// Package http exposes the engine over a small JSON API: run execution,
// archive inspection, health, metrics, and the API document itself.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validating openapi document: %w", err)
	}
	return doc, nil
}

// Engine is the slice of the furrow engine the HTTP adapter drives.
type Engine interface {
	Run(ctx context.Context, name string, trigger domain.TriggerData, overrides map[string]domain.Values) domain.RunResult
	Workflows() []string
}

// Server routes API requests to an Engine and its run archive.
type Server struct {
	engine   Engine
	store    ports.RunStore
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option defines a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunStore attaches the archive backing GET /v1/runs. Without one the
// listing endpoints serve empty results.
func WithRunStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithGatherer sets the metrics registry served at /metrics. Defaults to the
// process-wide prometheus gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// NewHandler creates the HTTP handler for the engine. The embedded OpenAPI
// document is validated here so a malformed build fails at startup, not on
// the first /openapi.yaml request.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	if _, err := GetSwagger(); err != nil {
		return nil, err
	}

	s := &Server{
		engine:   engine,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/swagger", s.getSwaggerUI)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.createRun)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// runRequest is the POST /v1/runs payload.
type runRequest struct {
	Workflow  string                    `json:"workflow,omitempty"`
	Query     string                    `json:"query"`
	Overrides map[string]map[string]any `json:"overrides,omitempty"`
}

// createRun handles the POST /v1/runs request.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("create run: invalid request body", "err", err)
		return
	}

	name := body.Workflow
	if name == "" {
		name = furrow.DefaultWorkflowName
	}
	var overrides map[string]domain.Values
	if len(body.Overrides) > 0 {
		overrides = make(map[string]domain.Values, len(body.Overrides))
		for step, values := range body.Overrides {
			overrides[step] = domain.Values(values)
		}
	}

	result := s.engine.Run(r.Context(), name, domain.TriggerData{Query: body.Query}, overrides)

	status := http.StatusOK
	if !result.Success && strings.Contains(result.Error, domain.ErrWorkflowNotFound.Error()) {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, result)
}

// listRuns handles the GET /v1/runs request.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	records := []domain.RunRecord{}
	if s.store != nil {
		var err error
		records, err = s.store.List(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Listing runs: %v", err), http.StatusInternalServerError)
			s.logger.Error("list runs failed", "err", err)
			return
		}
	}
	if records == nil {
		records = []domain.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// getRun handles the GET /v1/runs/{id} request.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.store == nil {
		http.Error(w, fmt.Sprintf("Run not found: %s", id), http.StatusNotFound)
		return
	}
	record, err := s.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, fmt.Sprintf("Run not found: %s", id), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Loading run: %v", err), http.StatusInternalServerError)
		s.logger.Error("load run failed", "run_id", id, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// getHealth handles the GET /healthz request.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getInfo handles the GET /info request.
func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "furrow-http",
		"version":     strings.TrimSpace(furrow.Version),
		"api_version": apiVersion,
	})
}

// getSpec serves the embedded OpenAPI document.
func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}

// getSwaggerUI serves the interactive API documentation page.
func (s *Server) getSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(swaggerHTML))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Furrow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
