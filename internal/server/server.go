package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	http *http.Server
}

// New creates a new server instance for the given router.
func New(router *gin.Engine, host, port string) *Server {
	return &Server{
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", host, port),
			Handler: router,
		},
	}
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
