package executorsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aqueducts-go/aqueducts/internal/config"
)

const defaultQueueCapacity = 64

// Server wires the executor's HTTP surface: the unauthenticated
// liveness probe and the authenticated WebSocket session endpoint that
// carries the protocol defined in internal/protocol.
type Server struct {
	cfg        config.Executor
	controller *queueController
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewServer builds a Server with its own single-slot execution queue,
// sized to defaultQueueCapacity.
func NewServer(cfg config.Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		controller: newQueueController(defaultQueueCapacity),
		logger:     logger,
		upgrader:   websocket.Upgrader{},
	}
}

// Router returns the chi router the caller mounts onto an http.Server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/health", s.handleHealth)
	r.With(func(next http.Handler) http.Handler {
		return requireAPIKey(s.cfg.APIKey, s.logger, next)
	}).Get("/ws/connect", s.handleConnect)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"executor_id": s.cfg.ExecutorID,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, s.controller, s.cfg, s.logger)
	sess.run(context.Background())
}
