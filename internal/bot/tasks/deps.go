// Package tasks implements the scheduled maintenance tasks of studybuddy.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"

	"github.com/edgard/studybuddy/internal/cache"
	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
// Cache may be nil when transcript caching is off.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Cache  *cache.Tiered
	Config *config.Config
}
