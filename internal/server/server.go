package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Timeouts sized for a small LAN ops surface. The websocket route hijacks
// its connection on upgrade, so the write timeout governs only the plain
// HTTP endpoints.
const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 20
)

// Server hosts the ops API for the daemon's lifetime.
type Server struct {
	httpServer *http.Server
}

// New configures the server on the given port ("8080" and ":8080" are both
// accepted) with the fully built handler.
func New(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              listenAddr(port),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

// Run blocks serving requests until the listener fails or Shutdown is
// called, in which case it returns http.ErrServerClosed.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for in-flight
// requests up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func listenAddr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
