// Package server provides the HTTP API for pagesearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/ingest"
	"github.com/hyperjump/pagesearch/internal/search"
	"github.com/hyperjump/pagesearch/internal/storage"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// FormatChecker reports whether a file name has a supported document format.
type FormatChecker interface {
	Supports(name string) bool
}

// Dependencies are the components the HTTP handlers call into.
// Registry and Gatherer may be nil.
type Dependencies struct {
	Engine   *search.Engine
	Pipeline *ingest.Pipeline
	Gateway  *corpus.Gateway
	Formats  FormatChecker
	Registry storage.Registry
	Gatherer prometheus.Gatherer
}

// Server is the HTTP server for the pagesearch API.
type Server struct {
	deps   Dependencies
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Dependencies, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		deps:   deps,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// Ingestion can outlast any reasonable request timeout.
	r.Post("/api/v1/upload", s.handleUpload)
	r.Post("/api/v1/process_all", s.handleProcessAll)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/api/v1/search", s.handleSearchGet)
		r.Post("/api/v1/search", s.handleSearchPost)
		r.Get("/api/v1/documents", s.handleListDocuments)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/documents/*", s.handleServeDocument)
		r.Get("/health", s.handleHealth)
	})

	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
