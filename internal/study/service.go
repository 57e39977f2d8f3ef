// Package study implements video Q&A and the exam preparation flow on top of
// the transcript fetcher, the model client and the database.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/gemini"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/youtube"
)

// DefaultQuestionCount is the number of questions requested per session.
const DefaultQuestionCount = 15

// Deps holds the collaborators of a Service.
type Deps struct {
	Transcriber   youtube.Transcriber
	LLM           gemini.Client
	Memory        memory.Buffer
	Store         database.Store
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	QuestionCount int
}

// Service is shared by the HTTP API, the Telegram bot and the CLI.
type Service struct {
	transcriber   youtube.Transcriber
	llm           gemini.Client
	memory        memory.Buffer
	store         database.Store
	metrics       *metrics.Metrics
	log           *slog.Logger
	validate      *validator.Validate
	questionCount int
}

// NewService creates a Service. Metrics, Logger and QuestionCount are optional.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Transcriber == nil:
		return nil, errors.New("study: transcriber is required")
	case deps.LLM == nil:
		return nil, errors.New("study: model client is required")
	case deps.Memory == nil:
		return nil, errors.New("study: conversation buffer is required")
	case deps.Store == nil:
		return nil, errors.New("study: store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.QuestionCount <= 0 {
		deps.QuestionCount = DefaultQuestionCount
	}

	return &Service{
		transcriber:   deps.Transcriber,
		llm:           deps.LLM,
		memory:        deps.Memory,
		store:         deps.Store,
		metrics:       deps.Metrics,
		log:           deps.Logger.With("component", "study"),
		validate:      newValidator(),
		questionCount: deps.QuestionCount,
	}, nil
}

// QuestionCount returns the number of questions requested per session.
func (s *Service) QuestionCount() int {
	return s.questionCount
}

// ResetConversation forgets the conversation buffer of conversationID.
func (s *Service) ResetConversation(ctx context.Context, conversationID string) error {
	if err := s.memory.Reset(ctx, conversationID); err != nil {
		return apperrors.NewDatabaseError("failed to reset conversation", err)
	}
	s.log.InfoContext(ctx, "Conversation reset", "conversation_id", memory.ConversationID(conversationID))
	return nil
}

// newValidator reports fields by their JSON name so messages match the API.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates req and converts failures into a validation error.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid request", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "), nil)
}

// storeError maps database.ErrNotFound to a not found error and anything else
// to a database error.
func storeError(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NewNotFoundError(what + " not found")
	}
	return apperrors.NewDatabaseError("failed to access "+what, err)
}
