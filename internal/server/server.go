// Package server provides the HTTP surface of the gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server is the HTTP server hosting the admin and proxy endpoints.
type Server struct {
	Router *chi.Mux
	Port   int

	logger *slog.Logger
	http   *http.Server
}

// New builds the router with the standard middleware chain and mounts the
// handler. Per-endpoint authentication lives in the handlers because the
// admin and proxy surfaces accept different credentials.
func New(port int, logger *slog.Logger, handler *Handler) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	// Must exceed the longest dispatch timeout (image, 120s) so the inbound
	// deadline never preempts a classified upstream timeout.
	r.Use(middleware.Timeout(150 * time.Second))
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "edu-gateway")
	})

	handler.Routes(r)

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
		http: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		},
	}
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
