// Package ws is the WebSocket transport of the hubs.
// One path per hub, a plain GET on the same path answers a greeting.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Route mounts an endpoint on a path.
type Route struct {
	Path     string
	Greeting string
	Endpoint Endpoint
}

type Server struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	bufferSize int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
	conns   map[*Connection]struct{}
	wg      sync.WaitGroup
}

func NewServer(log *slog.Logger, bufferSize int) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		bufferSize: bufferSize,
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[*Connection]struct{}),
	}
}

// Mount registers every route on mux.
func (s *Server) Mount(mux *http.ServeMux, routes ...Route) {
	for _, route := range routes {
		mux.HandleFunc("GET "+route.Path, s.serve(route))
	}
}

func (s *Server) serve(route Route) http.HandlerFunc {
	log := s.log.With("path", route.Path)
	return func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			WriteJSON(w, http.StatusOK, route.Greeting)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader already answered the client.
			log.Debug("Upgrade failed", "error", err)
			return
		}

		c := newConnection(log, conn, s.bufferSize)
		if !s.track(c) {
			_ = conn.Close()
			return
		}
		defer s.untrack(c)

		go c.writePump()

		id, err := route.Endpoint.Connect(s.ctx, c)
		if err != nil {
			log.Warn("Connection refused", "error", err)
			_ = c.Close()
			return
		}
		log.Info("Client connected", "conn_id", id, "remote", r.RemoteAddr)
		c.readPump(s.ctx, route.Endpoint, id)
		log.Info("Client disconnected", "conn_id", id)
	}
}

func (s *Server) track(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Len returns the number of live sockets.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close sends a close frame to every live socket and waits for their
// read loops to end or ctx to expire.
// Hijacked connections are not covered by http.Server.Shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.cancel()
	for _, c := range conns {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteJSON answers v as a JSON document.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
