package tasks

import (
	"context"
	"fmt"
	"time"
)

// newConversationPruneTask deletes conversation turns older than the
// configured memory retention.
func newConversationPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "conversation_prune")

	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-deps.Config.Memory.Retention)
		n, err := deps.Store.PruneTurnsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune conversation turns: %w", err)
		}
		log.InfoContext(ctx, "Pruned conversation turns", "deleted", n, "cutoff", cutoff)
		return nil
	}
}

// newSessionExpiryTask expires active exam sessions not touched within the
// session TTL.
func newSessionExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_expiry")

	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-deps.Config.Exam.SessionTTL)
		n, err := deps.Store.ExpireSessionsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("expire sessions: %w", err)
		}
		if n > 0 {
			log.InfoContext(ctx, "Expired idle exam sessions", "expired", n)
		}
		return nil
	}
}

// newCacheCleanupTask drops expired entries from the in-process transcript
// cache. Redis expires its own keys.
func newCacheCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cache_cleanup")

	return func(ctx context.Context) error {
		removed := deps.Cache.Cleanup()
		log.DebugContext(ctx, "Cleaned transcript cache", "removed", removed, "remaining", deps.Cache.Len())
		return nil
	}
}
