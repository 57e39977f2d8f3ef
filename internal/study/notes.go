package study

import (
	"context"
	"strings"

	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/gemini"
	"github.com/edgard/studybuddy/internal/memory"
)

// NotesRequest asks for study notes on a topic.
type NotesRequest struct {
	Topic          string `json:"topic"           validate:"required"`
	FocusAreas     string `json:"focus_areas"`
	ConversationID string `json:"conversation_id"`
}

// GenerateNotes writes study notes on a topic, weighted towards the focus
// areas when given. The conversation buffer is used as context and the
// exchange is appended to it.
func (s *Service) GenerateNotes(ctx context.Context, req NotesRequest) (*database.Note, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.FocusAreas = strings.TrimSpace(req.FocusAreas)
	if err := s.check(req); err != nil {
		return nil, err
	}

	history, err := s.memory.Recent(ctx, req.ConversationID, 0)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load conversation history, continuing without it", "error", err)
		history = nil
	}

	content, err := s.llm.Generate(ctx, gemini.Request{
		System:  professorInstruction,
		History: history,
		Prompt:  notesPrompt(req.Topic, req.FocusAreas),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Notes generation failed", err)
	}
	s.metrics.NotesGenerated.Add(1)

	if err := s.memory.Append(ctx, req.ConversationID,
		memory.UserTurn("Create notes for: "+req.Topic),
		memory.ModelTurn(content),
	); err != nil {
		s.log.WarnContext(ctx, "Failed to store conversation turns", "error", err)
	}

	note := &database.Note{Topic: req.Topic, FocusAreas: req.FocusAreas, Content: content}
	if err := s.store.SaveNote(ctx, note); err != nil {
		return nil, storeError(err, "note")
	}

	s.log.InfoContext(ctx, "Notes generated", "note_id", note.ID, "topic", req.Topic)
	return note, nil
}

// ListNotes returns up to limit notes, newest first.
func (s *Service) ListNotes(ctx context.Context, limit int) ([]database.Note, error) {
	notes, err := s.store.ListNotes(ctx, limit)
	if err != nil {
		return nil, storeError(err, "notes")
	}
	return notes, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError("note id must be positive", nil)
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return storeError(err, "note")
	}
	return nil
}
