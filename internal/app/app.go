// Package app builds the studybuddy components from the configuration and
// manages their lifetime. Every command of the CLI starts from an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/studybuddy/internal/cache"
	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/gemini"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/study"
	"github.com/edgard/studybuddy/internal/youtube"
)

// App holds the components shared by the CLI commands and the server.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	DB          *sqlx.DB
	Store       database.Store
	Cache       *cache.Tiered
	Transcriber *youtube.Client

	serviceOnce sync.Once
	service     *study.Service
	serviceErr  error
}

// New opens the database and builds the transcript pipeline. The model client
// is built on first use by Service, so commands that never call the model do
// not need an API key.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	startTime := time.Now()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := metrics.New()
	c := cache.New(ctx, cache.Options{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		RedisURL:   cfg.Cache.RedisURL,
	}, log)
	m.AttachCacheStats(c.Stats)

	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		DB:      db,
		Store:   database.NewStore(db, log),
		Cache:   c,
		Transcriber: youtube.NewClient(youtube.Options{
			BaseURL:           cfg.YouTube.BaseURL,
			Languages:         cfg.YouTube.Languages,
			UserAgent:         cfg.YouTube.UserAgent,
			RequestTimeout:    cfg.YouTube.RequestTimeout,
			RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
			Burst:             cfg.YouTube.Burst,
			MaxRetries:        cfg.YouTube.MaxRetries,
			Cache:             c,
			Metrics:           m,
			Logger:            log,
		}),
	}

	log.Debug("Application components initialized", "duration_ms", time.Since(startTime).Milliseconds())
	return a, nil
}

// Memory returns the conversation buffer selected by memory.backend.
func (a *App) Memory() memory.Buffer {
	if a.Config.Memory.Backend == "memory" {
		return memory.NewInMemory(a.Config.Memory.WindowSize)
	}
	return memory.NewPersistent(a.Store, a.Config.Memory.WindowSize)
}

// Service returns the study service, building the model client on first call.
func (a *App) Service(ctx context.Context) (*study.Service, error) {
	a.serviceOnce.Do(func() {
		llm, err := gemini.NewClient(ctx, a.Config.Gemini, a.Metrics, a.Logger)
		if err != nil {
			a.serviceErr = err
			return
		}
		a.service, a.serviceErr = study.NewService(study.Deps{
			Transcriber:   a.Transcriber,
			LLM:           llm,
			Memory:        a.Memory(),
			Store:         a.Store,
			Metrics:       a.Metrics,
			Logger:        a.Logger,
			QuestionCount: a.Config.Exam.QuestionCount,
		})
	})
	return a.service, a.serviceErr
}

// Close releases the cache and the database.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
