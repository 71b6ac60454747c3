package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/morenoc/imagemill/internal/hub"
	"github.com/morenoc/imagemill/internal/orchestrator"
)

const (
	readBufferSize  = 1024
	writeBufferSize = 1024
)

type server struct {
	hub      *hub.Hub
	orch     *orchestrator.Orchestrator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newServer(
	h *hub.Hub,
	orch *orchestrator.Orchestrator,
	logger *slog.Logger,
) *server {
	return &server{
		hub:    h,
		orch:   orch,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,

			// The dashboard is opened straight from the filesystem, so
			// there is no meaningful origin to check against.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	return mux
}

// handleWS owns one client connection for its whole lifetime: upgrade,
// registration, welcome messages, the inbound message loop, and finally
// unconditional removal from the registry.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "addr", r.RemoteAddr, "err", err)
		return
	}

	client := hub.NewClient(conn)

	s.hub.Add(client)
	defer s.hub.Remove(client)

	s.welcome(client)
	s.readLoop(conn, client)
}
