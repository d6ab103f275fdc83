package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIVersion is the version of the HTTP surface.
const APIVersion = "0.1.0"

const maxBodyBytes = 1 << 20

// Server exposes an engine over HTTP. The engine is single-threaded, so
// every request holds the server mutex while it touches it.
type Server struct {
	mu       sync.Mutex
	engine   *bindery.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request failures and streams.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves the metrics of gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// NewServer wraps engine.
func NewServer(engine *bindery.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine *bindery.Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the router of s.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/snapshots", s.ListSnapshots)
	r.Route("/contexts", func(r chi.Router) {
		r.Get("/", s.ListContexts)
		r.Post("/", s.CreateContext)
		r.Route("/{owner}", func(r chi.Router) {
			r.Get("/", s.GetContext)
			r.Put("/", s.SetContext)
			r.Delete("/", s.DisposeContext)
			r.Get("/stats", s.GetStats)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/save", s.SaveContext)
			r.Post("/load", s.LoadContext)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "bindery-http",
		"version":     strings.TrimSpace(bindery.Version),
		"api_version": APIVersion,
	})
}

// ListContexts handles GET /contexts.
func (s *Server) ListContexts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	owners := s.engine.Owners()
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, map[string][]string{"owners": owners})
}

// CreateContext handles POST /contexts. An optional JSON object body seeds
// the new root.
func (s *Server) CreateContext(w http.ResponseWriter, r *http.Request) {
	value, err := readValue(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	var seed *tree.Object
	if value != nil {
		obj, ok := value.(*tree.Object)
		if !ok {
			s.fail(w, http.StatusBadRequest, "context root must be an object", nil)
			return
		}
		seed = obj
	}

	owner := uuid.NewString()
	s.mu.Lock()
	if seed != nil {
		s.engine.Restore(owner, seed)
	} else {
		s.engine.CreateContext(owner, "")
	}
	s.mu.Unlock()

	w.Header().Set("Location", "/contexts/"+owner)
	s.writeJSON(w, http.StatusCreated, map[string]string{"owner": owner})
}

// GetContext handles GET /contexts/{owner}?path=.
func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	owner, path := chi.URLParam(r, "owner"), r.URL.Query().Get("path")
	if path != "" && !domain.Valid(path) {
		s.fail(w, http.StatusBadRequest, "invalid path", nil)
		return
	}

	s.mu.Lock()
	_, ok := s.engine.Registry().Lookup(owner)
	var body []byte
	var err error
	if ok {
		body, err = json.Marshal(s.engine.GetContext(owner, path))
	}
	s.mu.Unlock()

	switch {
	case !ok:
		s.fail(w, http.StatusNotFound, "context not found", nil)
	case err != nil:
		s.fail(w, http.StatusInternalServerError, "encode failed", err)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

// SetContext handles PUT /contexts/{owner}?path=. Without a path the body
// replaces the whole root.
func (s *Server) SetContext(w http.ResponseWriter, r *http.Request) {
	owner, path := chi.URLParam(r, "owner"), r.URL.Query().Get("path")
	if path != "" && !domain.Valid(path) {
		s.fail(w, http.StatusBadRequest, "invalid path", nil)
		return
	}
	value, err := readValue(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if path == "" {
		root, ok := value.(*tree.Object)
		if !ok {
			s.fail(w, http.StatusBadRequest, "context root must be an object", nil)
			return
		}
		s.mu.Lock()
		s.engine.Restore(owner, root)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mu.Lock()
	ok := s.engine.SetContext(owner, path, value)
	s.mu.Unlock()
	if !ok {
		s.fail(w, http.StatusConflict, "path crosses a primitive value", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisposeContext handles DELETE /contexts/{owner}.
func (s *Server) DisposeContext(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	s.mu.Lock()
	_, existed := s.engine.Registry().Lookup(owner)
	removed := s.engine.Dispose(owner)
	s.mu.Unlock()

	if !existed && removed == 0 {
		s.fail(w, http.StatusNotFound, "owner not found", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// GetStats handles GET /contexts/{owner}/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats, err := s.engine.Inspect(chi.URLParam(r, "owner"))
	s.mu.Unlock()
	if err != nil {
		s.fail(w, statusFor(err), "inspect failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// SaveContext handles POST /contexts/{owner}/save.
func (s *Server) SaveContext(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	s.mu.Lock()
	err := s.engine.Save(r.Context(), owner)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, statusFor(err), "save failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadContext handles POST /contexts/{owner}/load.
func (s *Server) LoadContext(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	s.mu.Lock()
	err := s.engine.Load(r.Context(), owner)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, statusFor(err), "load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSnapshots handles GET /snapshots.
func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	owners, err := s.engine.Snapshots(r.Context())
	if err != nil {
		s.fail(w, statusFor(err), "list failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"owners": owners})
}

// change is one server-sent notification.
type change struct {
	Path     string `json:"path"`
	NewValue any    `json:"new"`
	OldValue any    `json:"old"`
}

// SubscribeEvents handles GET /contexts/{owner}/events?path= by streaming the
// notifications of path as server-sent events until the client goes away.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}
	owner, path := chi.URLParam(r, "owner"), r.URL.Query().Get("path")
	if !domain.Valid(path) {
		s.fail(w, http.StatusBadRequest, "invalid path", nil)
		return
	}

	events := make(chan []byte, 16)
	subscriber := "sse-" + uuid.NewString()

	s.mu.Lock()
	if _, ok := s.engine.Registry().Lookup(owner); !ok {
		s.mu.Unlock()
		s.fail(w, http.StatusNotFound, "context not found", nil)
		return
	}
	// Listeners run inside the request that mutates the root, which holds
	// the mutex, so the payload is encoded there and never blocks.
	s.engine.ObserveFunc(owner, path, subscriber, func(newValue, oldValue any) {
		payload, err := json.Marshal(change{Path: path, NewValue: newValue, OldValue: oldValue})
		if err != nil {
			s.logger.Warn("SSE: encode failed", "owner", owner, "path", path, "error", err)
			return
		}
		select {
		case events <- payload:
		default:
			s.logger.Warn("SSE: client buffer full, dropping notification", "owner", owner, "path", path)
		}
	})
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.engine.Dispose(subscriber)
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: subscribed", "owner", owner, "path", path)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "owner", owner, "path", path)
			return
		case payload := <-events:
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func readValue(r *http.Request) (any, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	return tree.DecodeJSON(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrContextNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
		if status >= http.StatusInternalServerError {
			s.logger.Error(msg)
		} else {
			s.logger.Warn(msg)
		}
	}
	http.Error(w, msg, status)
}
