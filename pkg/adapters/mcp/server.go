package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/pkg/domain"
)

// workflowsURI is the resource listing the runnable workflows.
const workflowsURI = "waypoint://workflows"

// Engine runs graphs and reads back their checkpoints.
type Engine interface {
	Run(ctx context.Context, g *domain.Graph, initial map[string]any, correlationID string, opts ...waypoint.RunOption) (*domain.State, error)
	Checkpoint(ctx context.Context, correlationID string) (*domain.State, error)
}

// Workflows resolves graphs by name.
type Workflows interface {
	Names() []string
	Graph(name string) (*domain.Graph, error)
}

// RunArgs are the arguments of the run_workflow tool.
type RunArgs struct {
	Name          string  `json:"name"`
	State         string  `json:"state,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	MaxSteps      float64 `json:"max_steps,omitempty"`
	Timeout       string  `json:"timeout,omitempty"`
}

// RunResult is the structured output of run_workflow. A failed run still
// reports its last-known State.
type RunResult struct {
	State *domain.State `json:"state,omitempty" jsonschema_description:"The final or last-known State of the run"`
	Error string        `json:"error,omitempty" jsonschema_description:"Why the run failed, empty on success"`
}

// Server exposes the workflows of an Engine as an MCP server.
type Server struct {
	engine    Engine
	workflows Workflows
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards.
func NewServer(engine Engine, wfs Workflows, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		workflows: wfs,
		logger:    logger,
		mcpServer: server.NewMCPServer("waypoint-mcp", strings.TrimSpace(waypoint.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List the workflows this server can run, with their entry step and steps."),
	), s.handleListWorkflows)

	runTool := mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a workflow to completion and return its final State."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The workflow to run")),
		mcp.WithString("state", mcp.Description("JSON object of initial State values (optional)")),
		mcp.WithString("correlation_id", mcp.Description("Run identifier; generated when omitted")),
		mcp.WithNumber("max_steps", mcp.Description("Step budget override (optional)")),
		mcp.WithString("timeout", mcp.Description(`Wall-clock budget as a Go duration, e.g. "2s" (optional)`)),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunWorkflow))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the Mermaid flowchart of a workflow, optionally highlighting a checkpointed run."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The workflow to draw")),
		mcp.WithString("run", mcp.Description("Correlation id of a checkpointed run to highlight")),
	), s.handleGetGraph)
}

type workflowInfo struct {
	Name  string   `json:"name"`
	Entry string   `json:"entry"`
	Steps []string `json:"steps"`
}

func (s *Server) describe() ([]workflowInfo, error) {
	infos := []workflowInfo{}
	for _, name := range s.workflows.Names() {
		g, err := s.workflows.Graph(name)
		if err != nil {
			return nil, err
		}
		info := workflowInfo{Name: g.Name(), Entry: g.Entry(), Steps: []string{}}
		for _, st := range g.Steps() {
			info.Steps = append(info.Steps, st.Name)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.describe()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.Marshal(infos)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (RunResult, error) {
	g, err := s.workflows.Graph(args.Name)
	if err != nil {
		return RunResult{}, err
	}

	var initial map[string]any
	if args.State != "" {
		if err := json.Unmarshal([]byte(args.State), &initial); err != nil {
			return RunResult{}, fmt.Errorf("state must be a JSON object: %w", err)
		}
	}

	var opts []waypoint.RunOption
	if args.MaxSteps > 0 {
		opts = append(opts, waypoint.MaxSteps(int(args.MaxSteps)))
	}
	if args.Timeout != "" {
		d, err := time.ParseDuration(args.Timeout)
		if err != nil {
			return RunResult{}, fmt.Errorf("invalid timeout: %w", err)
		}
		opts = append(opts, waypoint.Timeout(d))
	}

	state, err := s.engine.Run(ctx, g, initial, args.CorrelationID, opts...)
	if err == nil {
		return RunResult{State: state}, nil
	}
	if errors.Is(err, context.Canceled) {
		return RunResult{}, err
	}

	s.logger.Warn("mcp run failed", "graph", g.Name(), "error", err)
	if state == nil {
		state, _ = domain.FailedState(err)
	}
	return RunResult{State: state, Error: err.Error()}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.workflows.Graph(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var overlay *graph.GraphOverlay
	if id := request.GetString("run", ""); id != "" {
		state, err := s.engine.Checkpoint(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load run %s: %v", id, err)), nil
		}
		overlay = graph.OverlayFromState(state)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, overlay)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(workflowsURI, "Runnable Workflows",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		infos, err := s.describe()
		if err != nil {
			return nil, fmt.Errorf("failed to describe workflows: %w", err)
		}
		jsonBytes, _ := json.Marshal(infos)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      workflowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
