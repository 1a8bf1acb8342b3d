package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/pkg/config"
	"github.com/agentflow/agentflow/pkg/stores"
	"github.com/agentflow/agentflow/pkg/telemetry"
	"github.com/agentflow/agentflow/pkg/workflow"
)

const maxBodySize = 1 << 20 // 1 MB

// Server wraps the chi router and application dependencies.
type Server struct {
	router  *chi.Mux
	runner  *workflow.Runner
	store   stores.Store
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	cfg     config.ServerConfig
}

// NewServer creates and configures the HTTP API server.
func NewServer(cfg config.ServerConfig, runner *workflow.Runner, store stores.Store, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		runner:  runner,
		store:   store,
		metrics: metrics,
		logger:  logger.With().Str("component", "server").Logger(),
		cfg:     cfg,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	if len(cfg.CORSOrigins) > 0 {
		srv.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/workflow", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
		r.Post("/execute_async", s.handleExecuteAsync)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/status/{id}/events", s.handleEvents)
		r.Get("/runs", s.handleListRuns)
	})
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal or a
// server error.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let in-flight async runs finish before returning.
	s.runner.Wait()

	s.logger.Info().Msg("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
