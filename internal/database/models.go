package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Exam session statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionExpired   = "expired"
)

// Turn is one entry of a conversation buffer.
type Turn struct {
	ID             int64     `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

// ExamSession is a generated question set and, once finished, its final
// evaluation and notes.
type ExamSession struct {
	ID         string     `db:"id"`
	Owner      string     `db:"owner"`
	Topics     string     `db:"topics"`
	Questions  StringList `db:"questions"`
	Status     string     `db:"status"`
	Evaluation string     `db:"evaluation"`
	WeakTopics string     `db:"weak_topics"`
	Notes      string     `db:"notes"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Answer is the user's answer to one question of a session and its evaluation.
type Answer struct {
	ID            int64         `db:"id"`
	SessionID     string        `db:"session_id"`
	QuestionIndex int           `db:"question_index"`
	Question      string        `db:"question"`
	Answer        string        `db:"answer"`
	Evaluation    string        `db:"evaluation"`
	Score         sql.NullInt64 `db:"score"`
	Skipped       bool          `db:"skipped"`
	CreatedAt     time.Time     `db:"created_at"`
}

// Note is a generated set of study notes.
type Note struct {
	ID         int64          `db:"id"`
	Topic      string         `db:"topic"`
	FocusAreas string         `db:"focus_areas"`
	Content    string         `db:"content"`
	SessionID  sql.NullString `db:"session_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

// StringList is stored as a JSON array in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("invalid string list: %w", err)
	}
	*l = out
	return nil
}
