package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/cache"
	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/logger"
)

func newDeps(t *testing.T, cfg *config.Config, c *cache.Tiered) TaskDeps {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return TaskDeps{
		Logger: logger.Discard(),
		Store:  database.NewStore(db, logger.Discard()),
		Cache:  c,
		Config: cfg,
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	withoutCache := RegisterAllTasks(newDeps(t, &config.Config{}, nil))
	assert.Len(t, withoutCache, 3)
	assert.NotContains(t, withoutCache, "cache_cleanup")

	c := cache.New(context.Background(), cache.Options{TTL: time.Minute}, logger.Discard())
	withCache := RegisterAllTasks(newDeps(t, &config.Config{}, c))
	for name := range config.DefaultTasks {
		assert.Contains(t, withCache, name)
	}
}

func TestConversationPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deps := newDeps(t, &config.Config{Memory: config.MemoryConfig{Retention: 24 * time.Hour}}, nil)
	require.NoError(t, deps.Store.SaveTurns(ctx, []*database.Turn{
		{ConversationID: "c", Role: database.RoleUser, Content: "old", CreatedAt: time.Now().Add(-72 * time.Hour)},
		{ConversationID: "c", Role: database.RoleModel, Content: "fresh"},
	}))

	require.NoError(t, newConversationPruneTask(deps)(ctx))

	turns, err := deps.Store.RecentTurns(ctx, "c", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "fresh", turns[0].Content)
}

func TestSessionExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A negative TTL puts the cutoff in the future, so every active session is idle.
	deps := newDeps(t, &config.Config{Exam: config.ExamConfig{SessionTTL: -time.Minute}}, nil)
	session := &database.ExamSession{
		ID:        "session_idle",
		Owner:     "tg:1",
		Topics:    "Go",
		Questions: database.StringList{"q1"},
		Status:    database.SessionActive,
	}
	require.NoError(t, deps.Store.CreateSession(ctx, session))

	require.NoError(t, newSessionExpiryTask(deps)(ctx))

	got, err := deps.Store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, database.SessionExpired, got.Status)
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := cache.New(ctx, cache.Options{TTL: time.Millisecond, MaxEntries: 10}, logger.Discard())
	c.Set(ctx, cache.Key("a"), []byte("x"))
	require.Equal(t, 1, c.Len())
	time.Sleep(5 * time.Millisecond)

	deps := newDeps(t, &config.Config{}, c)
	require.NoError(t, newCacheCleanupTask(deps)(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestSQLMaintenance(t *testing.T) {
	t.Parallel()
	deps := newDeps(t, &config.Config{}, nil)
	assert.NoError(t, newSQLMaintenanceTask(deps)(context.Background()))
}
