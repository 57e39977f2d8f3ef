package memory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/memory"
)

func buffers(t *testing.T, limit int) map[string]memory.Buffer {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return map[string]memory.Buffer{
		"in-memory":  memory.NewInMemory(limit),
		"persistent": memory.NewPersistent(database.NewStore(db, logger.Discard()), limit),
	}
}

func contents(turns []memory.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func TestBufferWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, buf := range buffers(t, 4) {
		t.Run(name, func(t *testing.T) {
			for i := range 3 {
				require.NoError(t, buf.Append(ctx, "c1",
					memory.UserTurn(fmt.Sprintf("q%d", i)),
					memory.ModelTurn(fmt.Sprintf("a%d", i))))
			}

			turns, err := buf.Recent(ctx, "c1", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, contents(turns))
			assert.Equal(t, memory.RoleUser, turns[0].Role)
			assert.False(t, turns[0].CreatedAt.IsZero())

			turns, err = buf.Recent(ctx, "c1", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"q2", "a2"}, contents(turns))
		})
	}
}

func TestBufferIsolationAndReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, buf := range buffers(t, 10) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, buf.Append(ctx, "", memory.UserTurn("default turn")))
			require.NoError(t, buf.Append(ctx, "other", memory.UserTurn("other turn")))

			turns, err := buf.Recent(ctx, memory.DefaultConversation, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"default turn"}, contents(turns))

			require.NoError(t, buf.Reset(ctx, ""))
			turns, err = buf.Recent(ctx, "", 0)
			require.NoError(t, err)
			assert.Empty(t, turns)

			turns, err = buf.Recent(ctx, "other", 0)
			require.NoError(t, err)
			assert.Len(t, turns, 1)
		})
	}
}

func TestBufferRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	buf := memory.NewInMemory(5)
	err := buf.Append(context.Background(), "c", memory.Turn{Role: "system", Content: "x"})
	assert.Error(t, err)
}

func TestConversationID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "default", memory.ConversationID(""))
	assert.Equal(t, "tg:42", memory.ConversationID("tg:42"))
}
