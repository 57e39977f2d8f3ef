package handlers

import (
	"log/slog"

	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/study"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Service *study.Service
	Metrics *metrics.Metrics
}
