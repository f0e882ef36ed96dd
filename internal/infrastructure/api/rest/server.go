// Package rest exposes the chat and DSL management surface over HTTP.
package rest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/flowrunio/flowrun/internal/application/runner"
	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/infrastructure/websocket"
	"github.com/flowrunio/flowrun/internal/parser"
)

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	// DSLPath is the document file backing GET/POST /dsl/content.
	DSLPath string
	// WorkflowID tags run records created through the chat surface.
	WorkflowID uuid.UUID
}

// Server routes the HTTP surface. The loaded graph is hot-swappable via
// POST /dsl/content.
type Server struct {
	mu     sync.RWMutex
	graph  *parser.WorkflowGraph
	cfg    ServerConfig
	store  domain.Store
	runner *runner.Runner
	hub    *websocket.Hub
	mux    *http.ServeMux
	logger zerolog.Logger
}

// NewServer creates the server and registers its routes. Store and hub
// may be nil.
func NewServer(cfg ServerConfig, graph *parser.WorkflowGraph, store domain.Store, r *runner.Runner, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		graph:  graph,
		cfg:    cfg,
		store:  store,
		runner: r,
		hub:    hub,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /chat/send", s.handleChatSend)
	s.mux.HandleFunc("GET /chat/history/{id}", s.handleChatHistory)
	s.mux.HandleFunc("GET /dsl/content", s.handleGetDSL)
	s.mux.HandleFunc("POST /dsl/content", s.handleUpdateDSL)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	if s.hub != nil {
		s.mux.HandleFunc("GET /ws/runs", s.hub.Handle)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request received")
	s.mux.ServeHTTP(w, r)
}

// currentGraph returns the live graph under the swap lock.
func (s *Server) currentGraph() *parser.WorkflowGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

func (s *Server) swapGraph(graph *parser.WorkflowGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = graph
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
