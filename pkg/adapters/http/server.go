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
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/aretw0/waypoint/pkg/workflows"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodyBytes caps the size of a run request.
const maxBodyBytes = 1 << 20

// Engine runs graphs and reads back their checkpoints.
type Engine interface {
	Run(ctx context.Context, g *domain.Graph, initial map[string]any, correlationID string, opts ...waypoint.RunOption) (*domain.State, error)
	Checkpoint(ctx context.Context, correlationID string) (*domain.State, error)
	Checkpoints(ctx context.Context) ([]string, error)
}

// Workflows resolves graphs by name.
type Workflows interface {
	Names() []string
	Graph(name string) (*domain.Graph, error)
}

// Server serves the Waypoint HTTP API.
type Server struct {
	Engine    Engine
	Workflows Workflows
	Streams   *StreamManager

	spec     *openapi3.T
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams serves /runs/{id}/events from sm. The engine must publish to
// it through sm.Hooks().
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics serves /metrics from gatherer.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewHandler creates the HTTP handler for engine and wfs.
func NewHandler(engine Engine, wfs Workflows, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}

	s := &Server{Engine: engine, Workflows: wfs, spec: spec}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/workflows", s.ListWorkflows)
	r.Get("/workflows/{name}/graph", s.GetGraph)
	r.Post("/workflows/{name}/runs", s.RunWorkflow)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/runs/{id}/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Waypoint API Documentation</title>
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

// WorkflowInfo describes one runnable workflow.
type WorkflowInfo struct {
	Name  string   `json:"name"`
	Entry string   `json:"entry"`
	Steps []string `json:"steps"`
}

// RunRequest is the body of POST /workflows/{name}/runs.
type RunRequest struct {
	CorrelationID string         `json:"correlation_id"`
	State         map[string]any `json:"state"`
	MaxSteps      int            `json:"max_steps"`
	Timeout       string         `json:"timeout"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string        `json:"error"`
	Kind  string        `json:"kind,omitempty"`
	State *domain.State `json:"state,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "waypoint-http",
		"version":     strings.TrimSpace(waypoint.Version),
		"api_version": s.spec.Info.Version,
	})
}

// ListWorkflows handles GET /workflows.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	infos := []WorkflowInfo{}
	for _, name := range s.Workflows.Names() {
		g, err := s.Workflows.Graph(name)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		info := WorkflowInfo{Name: g.Name(), Entry: g.Entry(), Steps: []string{}}
		for _, st := range g.Steps() {
			info.Steps = append(info.Steps, st.Name)
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

// GetGraph handles GET /workflows/{name}/graph.
// With ?run=<id> the path of that checkpointed run is highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Workflows.Graph(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("run"); id != "" {
		state, err := s.Engine.Checkpoint(r.Context(), id)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		overlay = graph.OverlayFromState(state)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(g, overlay))
}

// RunWorkflow handles POST /workflows/{name}/runs.
func (s *Server) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	g, err := s.Workflows.Graph(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	req, opts, err := s.decodeRunRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err, nil)
		return
	}

	state, err := s.Engine.Run(r.Context(), g, req.State, req.CorrelationID, opts...)
	if err != nil {
		s.fail(w, r, err, state)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// decodeRunRequest validates the body against the RunRequest schema of the
// OpenAPI document before decoding it. An empty body is an empty request.
func (s *Server) decodeRunRequest(r *http.Request) (RunRequest, []waypoint.RunOption, error) {
	var req RunRequest

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return req, nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if err := s.spec.Components.Schemas["RunRequest"].Value.VisitJSON(raw); err != nil {
			return req, nil, fmt.Errorf("invalid run request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, nil, fmt.Errorf("invalid run request: %w", err)
		}
	}

	var opts []waypoint.RunOption
	if req.MaxSteps > 0 {
		opts = append(opts, waypoint.MaxSteps(req.MaxSteps))
	}
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return req, nil, fmt.Errorf("invalid timeout: %w", err)
		}
		opts = append(opts, waypoint.Timeout(d))
	}
	return req, opts, nil
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Checkpoints(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Checkpoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SubscribeEvents handles GET /runs/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("sse client subscribed", "correlation_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "correlation_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Classify maps an error to its HTTP status and a short machine-readable kind.
func Classify(err error) (int, string) {
	var stepErr *domain.StepExecutionError
	switch {
	case errors.Is(err, workflows.ErrUnknownWorkflow), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrNoStore):
		return http.StatusNotImplemented, "no_store"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "configuration"
	case errors.Is(err, domain.ErrRouting):
		return http.StatusUnprocessableEntity, "routing"
	case errors.Is(err, domain.ErrStepLimitExceeded):
		return http.StatusLoopDetected, "step_limit"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &stepErr) && stepErr.Step == "":
		return http.StatusBadRequest, "invalid_state"
	case errors.Is(err, domain.ErrStepExecution):
		return http.StatusInternalServerError, "step_execution"
	}
	return http.StatusInternalServerError, "internal"
}

// fail reports err. A non-nil state means the run completed but its
// checkpoint could not be saved.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, state *domain.State) {
	status, kind := Classify(err)
	if state != nil {
		kind = "checkpoint"
	} else {
		state, _ = domain.FailedState(err)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	s.writeError(w, status, kind, err, state)
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind string, err error, state *domain.State) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind, State: state})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
