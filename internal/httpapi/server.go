package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/R3E-Network/session_layer/internal/config"
)

// Server manages the HTTP server lifecycle.
type Server struct {
	srv *http.Server
}

// NewServer creates a server for the given configuration and handler.
func NewServer(cfg config.ServerConfig, h http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start blocks serving requests until Shutdown or failure.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
