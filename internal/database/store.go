package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/edgard/studybuddy/internal/logger"
)

// Store defines the interface for database operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// SaveTurns appends turns to their conversations in one transaction.
	SaveTurns(ctx context.Context, turns []*Turn) error

	// RecentTurns returns up to limit most recent turns of a conversation, oldest first.
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error)

	// DeleteConversation removes every turn of a conversation.
	DeleteConversation(ctx context.Context, conversationID string) (int64, error)

	// PruneTurnsBefore removes turns older than cutoff across all conversations.
	PruneTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CreateSession inserts a new exam session.
	CreateSession(ctx context.Context, session *ExamSession) error

	// GetSession returns a session by ID or ErrNotFound.
	GetSession(ctx context.Context, id string) (*ExamSession, error)

	// GetActiveSessionByOwner returns the newest active session of owner or ErrNotFound.
	GetActiveSessionByOwner(ctx context.Context, owner string) (*ExamSession, error)

	// CompleteSession stores the final evaluation and marks the session completed.
	CompleteSession(ctx context.Context, id, evaluation, weakTopics, notes string) error

	// ExpireSessionsBefore marks active sessions last updated before cutoff as expired.
	ExpireSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ExpireSessionsByOwner marks every active session of owner as expired.
	ExpireSessionsByOwner(ctx context.Context, owner string) (int64, error)

	// SaveAnswer inserts or replaces the answer to one question of a session.
	SaveAnswer(ctx context.Context, answer *Answer) error

	// ListAnswers returns the answers of a session ordered by question index.
	ListAnswers(ctx context.Context, sessionID string) ([]Answer, error)

	// SaveNote inserts a note.
	SaveNote(ctx context.Context, note *Note) error

	// ListNotes returns up to limit notes, newest first.
	ListNotes(ctx context.Context, limit int) ([]Note, error)

	// DeleteNote removes a note or returns ErrNotFound.
	DeleteNote(ctx context.Context, id int64) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back unless fn succeeds and the
// commit goes through.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlxStore) SaveTurns(ctx context.Context, turns []*Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for _, t := range turns {
		if t == nil {
			return errors.New("cannot save nil turn")
		}
		if t.ConversationID == "" {
			return errors.New("turn must have a conversation_id")
		}
		if t.Role != RoleUser && t.Role != RoleModel {
			return fmt.Errorf("invalid turn role %q", t.Role)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
	}

	query := `
        INSERT INTO conversation_turns (conversation_id, role, content, created_at)
        VALUES (:conversation_id, :role, :content, :created_at);
    `

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range turns {
			result, err := tx.NamedExecContext(ctx, query, t)
			if err != nil {
				return fmt.Errorf("failed to save turn (conversation %s): %w", t.ConversationID, err)
			}
			if id, err := result.LastInsertId(); err == nil {
				t.ID = id
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving turns", "count", len(turns), "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "Turns saved", "conversation_id", turns[0].ConversationID, "count", len(turns))
	return nil
}

func (s *sqlxStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if conversationID == "" {
		return nil, errors.New("conversation_id cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	} else if limit > 200 {
		limit = 200
	}

	var turns []Turn
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM conversation_turns
        WHERE conversation_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &turns, query, conversationID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching recent turns", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to fetch turns for %s: %w", conversationID, err)
	}

	return lo.Reverse(turns), nil
}

func (s *sqlxStore) DeleteConversation(ctx context.Context, conversationID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE conversation_id = ?;`, conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	n, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Conversation deleted", "conversation_id", conversationID, "turns", n)
	return n, nil
}

func (s *sqlxStore) PruneTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune turns: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *sqlxStore) CreateSession(ctx context.Context, session *ExamSession) error {
	if session == nil {
		return errors.New("cannot save nil session")
	}
	if session.ID == "" {
		return errors.New("session must have an id")
	}
	if strings.TrimSpace(session.Topics) == "" {
		return errors.New("session must have topics")
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = SessionActive
	}

	query := `
        INSERT INTO exam_sessions (id, owner, topics, questions, status, evaluation, weak_topics, notes, created_at, updated_at)
        VALUES (:id, :owner, :topics, :questions, :status, :evaluation, :weak_topics, :notes, :created_at, :updated_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, session); err != nil {
		s.logger.ErrorContext(ctx, "Error creating session", "session_id", session.ID, "error", err)
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}

	s.logger.DebugContext(ctx, "Session created", "session_id", session.ID, "questions", len(session.Questions))
	return nil
}

const sessionColumns = `id, owner, topics, questions, status, evaluation, weak_topics, notes, created_at, updated_at`

func (s *sqlxStore) getSession(ctx context.Context, query string, args ...any) (*ExamSession, error) {
	var session ExamSession
	if err := s.db.GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *sqlxStore) GetSession(ctx context.Context, id string) (*ExamSession, error) {
	session, err := s.getSession(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = ?;`, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch session %s: %w", id, err)
	}
	return session, err
}

func (s *sqlxStore) GetActiveSessionByOwner(ctx context.Context, owner string) (*ExamSession, error) {
	if owner == "" {
		return nil, ErrNotFound
	}
	session, err := s.getSession(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE owner = ? AND status = ? ORDER BY created_at DESC LIMIT 1;`,
		owner, SessionActive)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch active session for %s: %w", owner, err)
	}
	return session, err
}

func (s *sqlxStore) CompleteSession(ctx context.Context, id, evaluation, weakTopics, notes string) error {
	result, err := s.db.ExecContext(ctx, `
        UPDATE exam_sessions
        SET status = ?, evaluation = ?, weak_topics = ?, notes = ?, updated_at = ?
        WHERE id = ?;
    `, SessionCompleted, evaluation, weakTopics, notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete session %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) ExpireSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?;`,
		SessionExpired, time.Now().UTC(), SessionActive, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *sqlxStore) ExpireSessionsByOwner(ctx context.Context, owner string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET status = ?, updated_at = ? WHERE status = ? AND owner = ?;`,
		SessionExpired, time.Now().UTC(), SessionActive, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions of %s: %w", owner, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *sqlxStore) SaveAnswer(ctx context.Context, answer *Answer) error {
	if answer == nil {
		return errors.New("cannot save nil answer")
	}
	if answer.SessionID == "" {
		return errors.New("answer must have a session_id")
	}
	if answer.QuestionIndex < 0 {
		return fmt.Errorf("invalid question index %d", answer.QuestionIndex)
	}
	answer.CreatedAt = time.Now().UTC()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx, `
            INSERT INTO exam_answers (session_id, question_index, question, answer, evaluation, score, skipped, created_at)
            VALUES (:session_id, :question_index, :question, :answer, :evaluation, :score, :skipped, :created_at)
            ON CONFLICT (session_id, question_index) DO UPDATE SET
                question = excluded.question,
                answer = excluded.answer,
                evaluation = excluded.evaluation,
                score = excluded.score,
                skipped = excluded.skipped,
                created_at = excluded.created_at;
        `, answer)
		if err != nil {
			return fmt.Errorf("failed to save answer (session %s, question %d): %w", answer.SessionID, answer.QuestionIndex, err)
		}
		if id, err := result.LastInsertId(); err == nil {
			answer.ID = id
		}

		if _, err := tx.ExecContext(ctx, `UPDATE exam_sessions SET updated_at = ? WHERE id = ?;`, answer.CreatedAt, answer.SessionID); err != nil {
			return fmt.Errorf("failed to touch session %s: %w", answer.SessionID, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving answer", "session_id", answer.SessionID, "error", err)
		return err
	}
	return nil
}

func (s *sqlxStore) ListAnswers(ctx context.Context, sessionID string) ([]Answer, error) {
	var answers []Answer
	query := `
        SELECT id, session_id, question_index, question, answer, evaluation, score, skipped, created_at
        FROM exam_answers
        WHERE session_id = ?
        ORDER BY question_index ASC;
    `
	if err := s.db.SelectContext(ctx, &answers, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list answers of %s: %w", sessionID, err)
	}
	return answers, nil
}

func (s *sqlxStore) SaveNote(ctx context.Context, note *Note) error {
	if note == nil {
		return errors.New("cannot save nil note")
	}
	if strings.TrimSpace(note.Topic) == "" || note.Content == "" {
		return errors.New("note must have a topic and content")
	}
	note.CreatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO notes (topic, focus_areas, content, session_id, created_at)
        VALUES (:topic, :focus_areas, :content, :session_id, :created_at);
    `, note)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving note", "topic", note.Topic, "error", err)
		return fmt.Errorf("failed to save note: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		note.ID = id
	}
	return nil
}

func (s *sqlxStore) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	var notes []Note
	query := `
        SELECT id, topic, focus_areas, content, session_id, created_at
        FROM notes
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &notes, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *sqlxStore) DeleteNote(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RunSQLMaintenance performs VACUUM to rebuild the database file.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance (VACUUM)...")
	startTime := time.Now()

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "SQL maintenance failed", "error", err)
		return fmt.Errorf("vacuum failed: %w", err)
	}

	s.logger.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(startTime))
	return nil
}
