// Package memory keeps the short-term conversation context handed to the model.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/edgard/studybuddy/internal/database"
)

// DefaultConversation is used when a caller gives no conversation ID.
const DefaultConversation = "default"

// Roles of a turn.
const (
	RoleUser  = database.RoleUser
	RoleModel = database.RoleModel
)

// Turn is one prompt or response in a conversation.
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// UserTurn returns a turn authored by the user.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// ModelTurn returns a turn authored by the model.
func ModelTurn(content string) Turn {
	return Turn{Role: RoleModel, Content: content}
}

// Buffer stores recent turns per conversation.
type Buffer interface {
	// Append adds turns to the end of the conversation.
	Append(ctx context.Context, conversationID string, turns ...Turn) error
	// Recent returns up to n of the newest turns, oldest first. n <= 0 means
	// the buffer's window size.
	Recent(ctx context.Context, conversationID string, n int) ([]Turn, error)
	// Reset forgets the conversation.
	Reset(ctx context.Context, conversationID string) error
}

// ConversationID normalizes an empty ID to DefaultConversation.
func ConversationID(id string) string {
	if id == "" {
		return DefaultConversation
	}
	return id
}

func window(n, limit int) int {
	if n <= 0 || n > limit {
		return limit
	}
	return n
}

// InMemory is a process-local Buffer that keeps at most limit turns per
// conversation.
type InMemory struct {
	mu            sync.Mutex
	limit         int
	conversations map[string][]Turn
}

// NewInMemory creates an InMemory buffer. A non-positive limit defaults to 20.
func NewInMemory(limit int) *InMemory {
	if limit <= 0 {
		limit = 20
	}
	return &InMemory{limit: limit, conversations: make(map[string][]Turn)}
}

func (b *InMemory) Append(_ context.Context, conversationID string, turns ...Turn) error {
	if err := validateTurns(turns); err != nil {
		return err
	}
	conversationID = ConversationID(conversationID)
	now := time.Now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.conversations[conversationID]
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		buf = append(buf, t)
	}
	if over := len(buf) - b.limit; over > 0 {
		buf = append([]Turn(nil), buf[over:]...)
	}
	b.conversations[conversationID] = buf
	return nil
}

func (b *InMemory) Recent(_ context.Context, conversationID string, n int) ([]Turn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.conversations[ConversationID(conversationID)]
	n = window(n, b.limit)
	if len(buf) > n {
		buf = buf[len(buf)-n:]
	}
	return append([]Turn(nil), buf...), nil
}

func (b *InMemory) Reset(_ context.Context, conversationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, ConversationID(conversationID))
	return nil
}

// Persistent is a Buffer backed by the conversation_turns table. Old turns are
// removed by the conversation_prune task.
type Persistent struct {
	store database.Store
	limit int
}

// NewPersistent creates a Persistent buffer. A non-positive limit defaults to 20.
func NewPersistent(store database.Store, limit int) *Persistent {
	if limit <= 0 {
		limit = 20
	}
	return &Persistent{store: store, limit: limit}
}

func (b *Persistent) Append(ctx context.Context, conversationID string, turns ...Turn) error {
	if err := validateTurns(turns); err != nil {
		return err
	}
	conversationID = ConversationID(conversationID)
	rows := lo.Map(turns, func(t Turn, _ int) *database.Turn {
		return &database.Turn{
			ConversationID: conversationID,
			Role:           t.Role,
			Content:        t.Content,
			CreatedAt:      t.CreatedAt,
		}
	})
	return b.store.SaveTurns(ctx, rows)
}

func (b *Persistent) Recent(ctx context.Context, conversationID string, n int) ([]Turn, error) {
	rows, err := b.store.RecentTurns(ctx, ConversationID(conversationID), window(n, b.limit))
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r database.Turn, _ int) Turn {
		return Turn{Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
	}), nil
}

func (b *Persistent) Reset(ctx context.Context, conversationID string) error {
	_, err := b.store.DeleteConversation(ctx, ConversationID(conversationID))
	return err
}

var errInvalidRole = errors.New("turn role must be user or model")

func validateTurns(turns []Turn) error {
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleModel {
			return errInvalidRole
		}
	}
	return nil
}
