// Package web serves captured snapshots over HTTP for browsing and
// download. It is read-only: nothing it exposes can trigger a new
// snapshot or modify an existing one.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/digitalnavigator-80/opsnap/internal/history"
)

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8099,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server exposing the snapshot archive listing.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *slog.Logger

	snapshotsDir string
	index        *history.Index
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithIndex attaches the run index. Without it listings fall back to
// scanning the snapshots directory.
func WithIndex(idx *history.Index) ServerOption {
	return func(s *Server) {
		s.index = idx
	}
}

// New creates a server exposing the archives under snapshotsDir.
func New(cfg Config, snapshotsDir string, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       cfg,
		logger:       logger,
		snapshotsDir: snapshotsDir,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/snapshots", func(r chi.Router) {
		r.Get("/", s.handleListSnapshots)
		r.Get("/{id}", s.handleGetSnapshot)
		r.Get("/{id}/archive", s.handleDownloadArchive)
	})

	return r
}

// loggingMiddleware logs HTTP requests using structured logging.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// Start starts the HTTP server in a non-blocking manner.
func (s *Server) Start() error {
	s.logger.Info("starting http server", slog.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
