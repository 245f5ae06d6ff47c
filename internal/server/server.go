// Package server wraps the standard HTTP server with the receiver's
// lifecycle: bind, serve in the background, drain on shutdown.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"callmail/internal/common/logging"
)

// Server hosts the webhook endpoints.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   logging.Logger
}

// New creates a server listening on the given port
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listen address and begins serving in the background.
// Bind errors (port in use, bad address) are returned immediately so the
// caller can fail fast; errors after that point abort the process.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("HTTP server listening", logging.String("addr", listener.Addr().String()))

	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return nil
}

// Addr returns the bound address. Only valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server, waiting for in-flight
// requests to finish or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
