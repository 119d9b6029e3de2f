package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zjrosen/pagetypes/internal/log"
)

// Server wraps a Handler with an http.Server for lifecycle management.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int
}

// NewServer binds addr and prepares to serve h. With port 0 the OS picks a
// port; Port reports it.
func NewServer(addr string, h *Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}
	return &Server{
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           h.Routes(),
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: the log stream is long lived.
		},
	}, nil
}

// Start serves until Stop is called. It returns http.ErrServerClosed after
// a graceful stop.
func (s *Server) Start() error {
	log.Info(log.CatWeb, "Starting web server", "addr", s.listener.Addr().String(), "port", s.port)
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatWeb, "Stopping web server")
	return s.server.Shutdown(ctx)
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }
