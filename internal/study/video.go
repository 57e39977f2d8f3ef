package study

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/gemini"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/youtube"
)

// AskRequest is a question about a video.
type AskRequest struct {
	VideoURL       string `json:"video_url"       validate:"required"`
	Question       string `json:"question"        validate:"required"`
	ConversationID string `json:"conversation_id"`
}

// AskResult is the model's answer with the video it was based on.
type AskResult struct {
	VideoURL string `json:"video_url"`
	VideoID  string `json:"video_id"`
	Title    string `json:"title,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AskVideo answers a question about a video from its transcript. The answer
// cites the transcript with [MM:SS] timestamps.
func (s *Service) AskVideo(ctx context.Context, req AskRequest) (*AskResult, error) {
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	req.Question = strings.TrimSpace(req.Question)
	if err := s.check(req); err != nil {
		return nil, err
	}
	s.metrics.VideoQuestions.Add(1)

	transcript, err := s.transcriber.FetchTranscript(ctx, req.VideoURL)
	if err != nil {
		if errors.Is(err, youtube.ErrInvalidURL) {
			return nil, apperrors.NewValidationError("Transcript extraction failed", err)
		}
		return nil, apperrors.NewTranscriptError("Transcript extraction failed", err)
	}

	history, err := s.memory.Recent(ctx, req.ConversationID, 0)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load conversation history, continuing without it", "error", err)
		history = nil
	}

	answer, err := s.llm.Generate(ctx, gemini.Request{
		History: history,
		Prompt:  videoPrompt(transcript, req.Question),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("AI processing failed", err)
	}

	// Only the question is remembered; the transcript is re-sent with every prompt.
	userTurn := memory.UserTurn("About the video " + youtube.WatchURL(transcript.VideoID) + ": " + req.Question)
	if err := s.memory.Append(ctx, req.ConversationID, userTurn, memory.ModelTurn(answer)); err != nil {
		s.log.WarnContext(ctx, "Failed to store conversation turns", "error", err)
	}

	s.log.InfoContext(ctx, "Video question answered",
		"video_id", transcript.VideoID,
		"conversation_id", memory.ConversationID(req.ConversationID),
		"segments", len(transcript.Segments))

	return &AskResult{
		VideoURL: req.VideoURL,
		VideoID:  transcript.VideoID,
		Title:    transcript.Title,
		Question: req.Question,
		Answer:   answer,
	}, nil
}
