// Package server exposes the fetch operations over HTTP for local
// frontends and pollers. It is a thin adapter: cadence and reaction to
// results stay with the caller.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/issuescout/issuescout/internal/config"
	"github.com/issuescout/issuescout/internal/core/search"
	servermw "github.com/issuescout/issuescout/internal/server/middleware"
)

// Server is the HTTP server wrapping a search service.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     config.ServerConfig
	service *search.Service
	token   string
	logger  *zap.Logger
}

// New creates a server for the given service. token is the default
// credential applied when a request carries no Authorization header.
func New(cfg config.ServerConfig, service *search.Service, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(servermw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	s := &Server{
		router:  r,
		cfg:     cfg,
		service: service,
		token:   token,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	s.router.Route("/api/v0", func(r chi.Router) {
		r.Get("/issues", s.handleFetchIssues)
		r.Get("/issues/multi", s.handleFetchMulti)
		r.Get("/backoff", s.handleBackoff)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until the context is canceled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", servermw.GetRequestID(r.Context())))
		})
	}
}
