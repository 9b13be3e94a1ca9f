// Package server exposes stored topologies over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kination/runtopo/internal/store"
)

var log = ctrl.Log.WithName("server")

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8082"
	Addr string

	// ShutdownTimeout bounds the graceful shutdown
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers
	ReadHeaderTimeout time.Duration
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8082",
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Server serves the topology API. It implements manager.Runnable.
type Server struct {
	store  store.Store
	config ServerConfig
}

// New creates a new Server reading from s
func New(s store.Store, config ServerConfig) *Server {
	return &Server{
		store:  s,
		config: config,
	}
}

// Handler returns the HTTP routes of the API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/v1/namespaces/{namespace}/pipelineruns", s.handleList)
	r.Get("/api/v1/namespaces/{namespace}/pipelineruns/{name}/topology", s.handleTopology)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting topology API", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	log.Info("Shutting down topology API")
	return srv.Shutdown(shutdownCtx)
}

// NeedLeaderElection keeps the API on the leader, the only replica whose
// store is filled
func (s *Server) NeedLeaderElection() bool {
	return true
}
