// Package server exposes the study service over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/study"
)

// Options holds the dependencies of a Server.
type Options struct {
	Config    config.ServerConfig
	RateLimit config.RateLimitConfig
	Service   *study.Service
	Store     database.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	svc             *study.Service
	store           database.Store
	metrics         *metrics.Metrics
	log             *slog.Logger
	shutdownTimeout time.Duration
}

// New builds the gin engine and registers every route.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Config.Mode != "" && gin.Mode() != opts.Config.Mode {
		gin.SetMode(opts.Config.Mode)
	}

	s := &Server{
		engine:          gin.New(),
		svc:             opts.Service,
		store:           opts.Store,
		metrics:         opts.Metrics,
		log:             opts.Logger.With("component", "server"),
		shutdownTimeout: opts.Config.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	s.engine.Use(gin.Recovery(), logger.GinMiddleware(opts.Logger), cors.New(corsConfig(opts.Config.AllowedOrigins)))
	s.routes(opts.RateLimit)

	s.httpServer = &http.Server{
		Addr:              opts.Config.Addr,
		Handler:           s.engine,
		ReadTimeout:       opts.Config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.Config.WriteTimeout,
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (s *Server) routes(rl config.RateLimitConfig) {
	s.engine.GET("/", s.handleWelcome)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", s.handleMetrics)

	api := s.engine.Group("/")
	if rl.Enabled {
		api.Use(RateLimit(rl.RequestsPerMinute, rl.Burst, s.metrics))
	}

	api.POST("/main", s.handleAskVideo)
	api.POST("/startsession", s.handleStartSession)
	api.POST("/submitanswer", s.handleSubmitAnswer)
	api.POST("/finalevaluation", s.handleFinalEvaluation)
	api.POST("/generate_notes_only", s.handleGenerateNotes)

	api.GET("/sessions/:id", s.handleGetSession)
	api.POST("/sessions/:id/skip", s.handleSkipQuestion)
	api.GET("/notes", s.handleListNotes)
	api.DELETE("/notes/:id", s.handleDeleteNote)
	api.POST("/conversations/:id/reset", s.handleResetConversation)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
