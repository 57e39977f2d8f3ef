package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/study"
)

const defaultNotesLimit = 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func respondError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	if code == apperrors.CodeUnknown {
		code = apperrors.CodeInternal
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(code), ErrorResponse{
		Detail: apperrors.PublicMessage(err),
		Code:   code,
	})
}

// bindJSON decodes the request body. An empty body is allowed when optional
// is set.
func bindJSON(c *gin.Context, dst any, optional bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	respondError(c, apperrors.NewValidationError("invalid request body", err))
	return false
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "University Exam Prep Backend is Running"})
}

func (s *Server) handleHealth(c *gin.Context) {
	status, db, code := "ok", "ok", http.StatusOK
	if s.store == nil {
		db = "disabled"
	} else if err := s.store.Ping(c.Request.Context()); err != nil {
		s.log.WarnContext(c.Request.Context(), "Health check failed", "error", err)
		status, db, code = "degraded", "unreachable", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "database": db})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.String(http.StatusOK, s.metrics.Format())
}

func (s *Server) handleAskVideo(c *gin.Context) {
	var req study.AskRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := s.svc.AskVideo(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type startSessionResponse struct {
	SessionID      string   `json:"session_id"`
	TotalQuestions int      `json:"total_questions"`
	Questions      []string `json:"questions"`
	Topics         string   `json:"topics"`
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req study.StartRequest
	if !bindJSON(c, &req, false) {
		return
	}
	session, err := s.svc.StartSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, startSessionResponse{
		SessionID:      session.ID,
		TotalQuestions: len(session.Questions),
		Questions:      session.Questions,
		Topics:         session.Topics,
	})
}

func (s *Server) handleSubmitAnswer(c *gin.Context) {
	var req study.AnswerRequest
	if !bindJSON(c, &req, false) {
		return
	}
	eval, err := s.svc.SubmitAnswer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

func (s *Server) handleFinalEvaluation(c *gin.Context) {
	var req study.FinalRequest
	if !bindJSON(c, &req, false) {
		return
	}
	report, err := s.svc.FinalEvaluation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGenerateNotes(c *gin.Context) {
	var req study.NotesRequest
	if !bindJSON(c, &req, false) {
		return
	}
	note, err := s.svc.GenerateNotes(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": note.Topic, "notes": note.Content, "note_id": note.ID})
}

type answerResponse struct {
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Evaluation    string `json:"evaluation"`
	Score         *int64 `json:"score,omitempty"`
	Skipped       bool   `json:"skipped"`
}

type sessionResponse struct {
	SessionID  string           `json:"session_id"`
	Owner      string           `json:"owner,omitempty"`
	Topics     string           `json:"topics"`
	Status     string           `json:"status"`
	Questions  []string         `json:"questions"`
	Answers    []answerResponse `json:"answers"`
	NextIndex  int              `json:"next_index"`
	Evaluation string           `json:"total_evaluation,omitempty"`
	WeakTopics string           `json:"weak_topics,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (s *Server) handleGetSession(c *gin.Context) {
	v, err := s.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		SessionID: v.Session.ID,
		Owner:     v.Session.Owner,
		Topics:    v.Session.Topics,
		Status:    v.Session.Status,
		Questions: v.Session.Questions,
		Answers: lo.Map(v.Answers, func(a database.Answer, _ int) answerResponse {
			out := answerResponse{
				QuestionIndex: a.QuestionIndex,
				Question:      a.Question,
				Answer:        a.Answer,
				Evaluation:    a.Evaluation,
				Skipped:       a.Skipped,
			}
			if a.Score.Valid {
				out.Score = lo.ToPtr(a.Score.Int64)
			}
			return out
		}),
		NextIndex:  v.NextIndex(),
		Evaluation: v.Session.Evaluation,
		WeakTopics: v.Session.WeakTopics,
		Notes:      v.Session.Notes,
		CreatedAt:  v.Session.CreatedAt,
		UpdatedAt:  v.Session.UpdatedAt,
	})
}

type skipRequest struct {
	QuestionIndex *int `json:"question_index"`
}

func (s *Server) handleSkipQuestion(c *gin.Context) {
	var req skipRequest
	if !bindJSON(c, &req, true) {
		return
	}
	if req.QuestionIndex != nil && *req.QuestionIndex < 0 {
		respondError(c, apperrors.NewValidationError("question_index must not be negative", nil))
		return
	}
	eval, err := s.svc.SkipQuestion(c.Request.Context(), c.Param("id"), req.QuestionIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

type noteResponse struct {
	ID         int64     `json:"id"`
	Topic      string    `json:"topic"`
	FocusAreas string    `json:"focus_areas,omitempty"`
	Content    string    `json:"content"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleListNotes(c *gin.Context) {
	limit := defaultNotesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, apperrors.NewValidationError("limit must be a positive integer", err))
			return
		}
		limit = n
	}
	notes, err := s.svc.ListNotes(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": lo.Map(notes, func(n database.Note, _ int) noteResponse {
		return noteResponse{
			ID:         n.ID,
			Topic:      n.Topic,
			FocusAreas: n.FocusAreas,
			Content:    n.Content,
			SessionID:  n.SessionID.String,
			CreatedAt:  n.CreatedAt,
		}
	})})
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperrors.NewValidationError("note id must be an integer", err))
		return
	}
	if err := s.svc.DeleteNote(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetConversation(c *gin.Context) {
	if err := s.svc.ResetConversation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
