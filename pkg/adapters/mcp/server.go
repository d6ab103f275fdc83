package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/registry"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ContextsURI is the resource listing the live context roots.
const ContextsURI = "bindery://contexts"

// ValueResponse is the result of get_context and set_context.
type ValueResponse struct {
	Owner string `json:"owner" jsonschema_description:"Owner id of the context root"`
	Path  string `json:"path" jsonschema_description:"Dotted identifier, empty for the root"`
	Value any    `json:"value" jsonschema_description:"Value at the identifier"`
}

// OwnersResponse is the result of list_contexts.
type OwnersResponse struct {
	Owners []string `json:"owners" jsonschema_description:"Owner ids of the live context roots"`
}

// DisposeResponse is the result of dispose_owner.
type DisposeResponse struct {
	Owner   string `json:"owner" jsonschema_description:"Disposed owner id"`
	Removed int    `json:"removed" jsonschema_description:"Registrations removed"`
}

// Server exposes a bindery engine as an MCP server. Tool calls may arrive
// concurrently, so each one holds the server mutex while it uses the engine.
type Server struct {
	mu        sync.Mutex
	engine    *bindery.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *bindery.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("bindery-mcp", strings.TrimSpace(bindery.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_context",
		mcp.WithDescription("Read the value at a dotted identifier of a context root."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner id of the context root")),
		mcp.WithString("path", mcp.Description("Dotted identifier (empty for the whole root)")),
		mcp.WithOutputSchema[ValueResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetContext))

	s.mcpServer.AddTool(mcp.NewTool("set_context",
		mcp.WithDescription("Write a JSON value at a dotted identifier, notifying its listeners."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner id of the context root")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Dotted identifier")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON encoded value")),
		mcp.WithOutputSchema[ValueResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetContext))

	s.mcpServer.AddTool(mcp.NewTool("list_contexts",
		mcp.WithDescription("List the owners holding a live context root."),
		mcp.WithOutputSchema[OwnersResponse](),
	), mcp.NewStructuredToolHandler(s.handleListContexts))

	s.mcpServer.AddTool(mcp.NewTool("inspect_context",
		mcp.WithDescription("Report the listener, trap and cache counters of a context root."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner id of the context root")),
		mcp.WithOutputSchema[registry.Stats](),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("dispose_owner",
		mcp.WithDescription("Remove every registration of an owner and its context root."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner id")),
		mcp.WithOutputSchema[DisposeResponse](),
	), mcp.NewStructuredToolHandler(s.handleDispose))
}

// Handler methods for structured tools

func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValueResponse, error) {
	owner, _ := args["owner"].(string)
	path, _ := args["path"].(string)
	if path != "" && !domain.Valid(path) {
		return ValueResponse{}, fmt.Errorf("invalid path %q", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engine.Registry().Lookup(owner); !ok {
		return ValueResponse{}, fmt.Errorf("get %q: %w", owner, domain.ErrContextNotFound)
	}
	return ValueResponse{Owner: owner, Path: path, Value: tree.ToNative(s.engine.GetContext(owner, path))}, nil
}

func (s *Server) handleSetContext(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValueResponse, error) {
	owner, _ := args["owner"].(string)
	path, _ := args["path"].(string)
	raw, _ := args["value"].(string)
	if owner == "" {
		return ValueResponse{}, errors.New("owner is required")
	}
	if !domain.Valid(path) {
		return ValueResponse{}, fmt.Errorf("invalid path %q", path)
	}
	value, err := tree.DecodeJSON([]byte(raw))
	if err != nil {
		return ValueResponse{}, fmt.Errorf("invalid value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.SetContext(owner, path, value) {
		return ValueResponse{}, fmt.Errorf("cannot write %q: path crosses a primitive value", path)
	}
	s.logger.Debug("MCP set_context", "owner", owner, "path", path)
	return ValueResponse{Owner: owner, Path: path, Value: tree.ToNative(s.engine.GetContext(owner, path))}, nil
}

func (s *Server) handleListContexts(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (OwnersResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OwnersResponse{Owners: s.engine.Owners()}, nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (registry.Stats, error) {
	owner, _ := args["owner"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Inspect(owner)
}

func (s *Server) handleDispose(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DisposeResponse, error) {
	owner, _ := args["owner"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return DisposeResponse{Owner: owner, Removed: s.engine.Dispose(owner)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ContextsURI, "Live Context Roots",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.contextsJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ContextsURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

// contextsJSON encodes the stats of every live root, keyed by owner.
func (s *Server) contextsJSON() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]registry.Stats)
	for _, owner := range s.engine.Owners() {
		stats, err := s.engine.Inspect(owner)
		if err != nil {
			return "", err
		}
		out[owner] = stats
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode contexts: %w", err)
	}
	return string(data), nil
}
