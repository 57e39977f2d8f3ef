package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/gemini"
)

// Skipped questions are recorded with these values.
const (
	SkippedAnswer     = "[SKIPPED]"
	SkippedEvaluation = "Not attempted"
)

// StartRequest starts an exam session. Owner scopes the session to a chat or
// user; a new session expires the owner's previous active one.
type StartRequest struct {
	Topics string `json:"user_topics" validate:"required"`
	Owner  string `json:"owner"`
}

// AnswerRequest is an answer to evaluate. With a SessionID the question and
// topic default to the session's and the evaluation is stored; without one
// the evaluation is stateless and QuestionText and Topic are required.
type AnswerRequest struct {
	SessionID     string `json:"session_id"`
	QuestionIndex *int   `json:"question_index" validate:"omitempty,min=0"`
	QuestionText  string `json:"question_text"`
	AnswerText    string `json:"answer_text"    validate:"required"`
	Topic         string `json:"topic"`
}

// Evaluation is the graded answer to one question.
type Evaluation struct {
	SessionID     string `json:"session_id,omitempty"`
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	Evaluation    string `json:"evaluation"`
	Score         *int   `json:"score,omitempty"`
	// NextIndex is the next unanswered question of the session, or -1.
	NextIndex int `json:"next_index"`
}

// FinalRequest asks for the final report of a session, or of a conversation
// transcript when no session is given.
type FinalRequest struct {
	Topics           string `json:"topics"`
	FullConversation string `json:"full_conversation"`
	SessionID        string `json:"session_id"`
}

// FinalReport is the outcome of an exam.
type FinalReport struct {
	SessionID       string `json:"session_id,omitempty"`
	Topics          string `json:"topics"`
	TotalEvaluation string `json:"total_evaluation"`
	WeakTopics      string `json:"weak_topics"`
	Notes           string `json:"notes"`
}

// SessionView is a session with its answers.
type SessionView struct {
	Session *database.ExamSession
	Answers []database.Answer
}

// NextIndex returns the first question without an answer, or -1.
func (v *SessionView) NextIndex() int {
	answered := lo.Associate(v.Answers, func(a database.Answer) (int, bool) {
		return a.QuestionIndex, true
	})
	for i := range v.Session.Questions {
		if !answered[i] {
			return i
		}
	}
	return -1
}

// Conversation renders the answers as the Q/A/Eval transcript used by the
// final evaluation.
func (v *SessionView) Conversation() string {
	return BuildConversation(v.Answers)
}

// BuildConversation renders answers as "Qn:", "An:" and "Evaln:" lines, one
// blank line after each question.
func BuildConversation(answers []database.Answer) string {
	lines := make([]string, 0, len(answers)*4)
	for _, a := range answers {
		n := a.QuestionIndex + 1
		lines = append(lines,
			fmt.Sprintf("Q%d: %s", n, a.Question),
			fmt.Sprintf("A%d: %s", n, a.Answer),
			fmt.Sprintf("Eval%d: %s", n, a.Evaluation),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// StartSession generates the questions of a new exam session and stores it.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*database.ExamSession, error) {
	req.Topics = strings.TrimSpace(req.Topics)
	if err := s.check(req); err != nil {
		return nil, err
	}

	raw, err := s.llm.Generate(ctx, gemini.Request{
		System: professorInstruction,
		Prompt: questionsPrompt(req.Topics, s.questionCount),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Failed to generate questions", err)
	}

	if req.Owner != "" {
		if n, err := s.store.ExpireSessionsByOwner(ctx, req.Owner); err != nil {
			return nil, storeError(err, "sessions")
		} else if n > 0 {
			s.log.InfoContext(ctx, "Expired previous sessions", "owner", req.Owner, "count", n)
		}
	}

	session := &database.ExamSession{
		ID:        "session_" + uuid.NewString(),
		Owner:     req.Owner,
		Topics:    req.Topics,
		Questions: ParseQuestionList(raw),
		Status:    database.SessionActive,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, storeError(err, "session")
	}

	s.metrics.SessionsStarted.Add(1)
	s.log.InfoContext(ctx, "Exam session started",
		"session_id", session.ID,
		"owner", session.Owner,
		"questions", len(session.Questions))
	return session, nil
}

// GetSession returns a session with its answers.
func (s *Service) GetSession(ctx context.Context, id string) (*SessionView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("session_id is required", nil)
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, storeError(err, "session")
	}
	return s.view(ctx, session)
}

// ActiveSession returns the owner's active session with its answers.
func (s *Service) ActiveSession(ctx context.Context, owner string) (*SessionView, error) {
	session, err := s.store.GetActiveSessionByOwner(ctx, owner)
	if err != nil {
		return nil, storeError(err, "active session")
	}
	return s.view(ctx, session)
}

// AbandonSessions expires every active session of owner.
func (s *Service) AbandonSessions(ctx context.Context, owner string) (int64, error) {
	n, err := s.store.ExpireSessionsByOwner(ctx, owner)
	if err != nil {
		return 0, storeError(err, "sessions")
	}
	return n, nil
}

func (s *Service) view(ctx context.Context, session *database.ExamSession) (*SessionView, error) {
	answers, err := s.store.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, storeError(err, "answers")
	}
	return &SessionView{Session: session, Answers: answers}, nil
}

// activeView loads a session and its answers and checks that it can still
// take answers. A nil index selects the next unanswered question.
func (s *Service) activeView(ctx context.Context, sessionID string, index *int) (*SessionView, int, error) {
	v, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if v.Session.Status != database.SessionActive {
		return nil, 0, apperrors.NewValidationError(fmt.Sprintf("session %s is %s", sessionID, v.Session.Status), nil)
	}

	idx := v.NextIndex()
	if index != nil {
		idx = *index
	}
	if idx < 0 {
		return nil, 0, apperrors.NewValidationError("every question of this session has been answered", nil)
	}
	if idx >= len(v.Session.Questions) {
		return nil, 0, apperrors.NewValidationError(
			fmt.Sprintf("question_index %d is out of range (session has %d questions)", idx, len(v.Session.Questions)), nil)
	}
	return v, idx, nil
}

// SubmitAnswer evaluates an answer and, for session answers, stores it.
func (s *Service) SubmitAnswer(ctx context.Context, req AnswerRequest) (*Evaluation, error) {
	req.AnswerText = strings.TrimSpace(req.AnswerText)
	req.QuestionText = strings.TrimSpace(req.QuestionText)
	req.Topic = strings.TrimSpace(req.Topic)
	if err := s.check(req); err != nil {
		return nil, err
	}

	var (
		view *SessionView
		idx  int
	)
	if req.SessionID != "" {
		var err error
		view, idx, err = s.activeView(ctx, req.SessionID, req.QuestionIndex)
		if err != nil {
			return nil, err
		}
		if req.QuestionText == "" {
			req.QuestionText = view.Session.Questions[idx]
		}
		if req.Topic == "" {
			req.Topic = view.Session.Topics
		}
	} else {
		var missing []string
		if req.QuestionText == "" {
			missing = append(missing, "question_text is required")
		}
		if req.Topic == "" {
			missing = append(missing, "topic is required")
		}
		if len(missing) > 0 {
			return nil, apperrors.NewValidationError(strings.Join(missing, "; "), nil)
		}
		if req.QuestionIndex != nil {
			idx = *req.QuestionIndex
		}
	}

	text, err := s.llm.Generate(ctx, gemini.Request{
		System: professorInstruction,
		Prompt: evaluationPrompt(req.Topic, req.QuestionText, req.AnswerText),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Evaluation failed", err)
	}
	s.metrics.AnswersEvaluated.Add(1)

	eval := &Evaluation{
		SessionID:     req.SessionID,
		QuestionIndex: idx,
		Question:      req.QuestionText,
		Evaluation:    text,
		Score:         ParseScore(text),
		NextIndex:     -1,
	}

	if view != nil {
		answer := &database.Answer{
			SessionID:     req.SessionID,
			QuestionIndex: idx,
			Question:      req.QuestionText,
			Answer:        req.AnswerText,
			Evaluation:    text,
		}
		if eval.Score != nil {
			answer.Score.Int64 = int64(*eval.Score)
			answer.Score.Valid = true
		}
		if err := s.store.SaveAnswer(ctx, answer); err != nil {
			return nil, storeError(err, "answer")
		}
		eval.NextIndex = s.nextIndexAfter(ctx, req.SessionID)
	}

	s.log.InfoContext(ctx, "Answer evaluated",
		"session_id", req.SessionID,
		"question_index", idx,
		"score", lo.FromPtrOr(eval.Score, -1))
	return eval, nil
}

// SkipQuestion records a question as not attempted.
func (s *Service) SkipQuestion(ctx context.Context, sessionID string, index *int) (*Evaluation, error) {
	view, idx, err := s.activeView(ctx, sessionID, index)
	if err != nil {
		return nil, err
	}

	answer := &database.Answer{
		SessionID:     sessionID,
		QuestionIndex: idx,
		Question:      view.Session.Questions[idx],
		Answer:        SkippedAnswer,
		Evaluation:    SkippedEvaluation,
		Skipped:       true,
	}
	if err := s.store.SaveAnswer(ctx, answer); err != nil {
		return nil, storeError(err, "answer")
	}
	s.metrics.QuestionsSkipped.Add(1)
	s.log.InfoContext(ctx, "Question skipped", "session_id", sessionID, "question_index", idx)

	return &Evaluation{
		SessionID:     sessionID,
		QuestionIndex: idx,
		Question:      answer.Question,
		Evaluation:    SkippedEvaluation,
		NextIndex:     s.nextIndexAfter(ctx, sessionID),
	}, nil
}

func (s *Service) nextIndexAfter(ctx context.Context, sessionID string) int {
	v, err := s.GetSession(ctx, sessionID)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to reload session", "session_id", sessionID, "error", err)
		return -1
	}
	return v.NextIndex()
}

// FinalEvaluation writes the overall report, extracts the weak topics and
// generates notes focused on them. Session reports are stored and the session
// is marked completed.
func (s *Service) FinalEvaluation(ctx context.Context, req FinalRequest) (*FinalReport, error) {
	req.Topics = strings.TrimSpace(req.Topics)
	req.SessionID = strings.TrimSpace(req.SessionID)

	conversation := req.FullConversation
	var session *database.ExamSession
	if req.SessionID != "" {
		v, err := s.GetSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if v.Session.Status == database.SessionExpired {
			return nil, apperrors.NewValidationError(fmt.Sprintf("session %s has expired", req.SessionID), nil)
		}
		session = v.Session
		if req.Topics == "" {
			req.Topics = session.Topics
		}
		if strings.TrimSpace(conversation) == "" {
			conversation = v.Conversation()
		}
		if strings.TrimSpace(conversation) == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("session %s has no answers to evaluate", req.SessionID), nil)
		}
	} else {
		var missing []string
		if req.Topics == "" {
			missing = append(missing, "topics is required")
		}
		if strings.TrimSpace(conversation) == "" {
			missing = append(missing, "full_conversation is required")
		}
		if len(missing) > 0 {
			return nil, apperrors.NewValidationError(strings.Join(missing, "; "), nil)
		}
	}

	report, err := s.llm.Generate(ctx, gemini.Request{
		System: professorInstruction,
		Prompt: finalEvaluationPrompt(req.Topics, conversation),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Final evaluation failed", err)
	}
	weak := ExtractWeakTopics(report)

	notes, err := s.llm.Generate(ctx, gemini.Request{
		System: professorInstruction,
		Prompt: notesPrompt(req.Topics, weak),
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Final evaluation failed", err)
	}
	s.metrics.NotesGenerated.Add(1)

	note := &database.Note{Topic: req.Topics, FocusAreas: weak, Content: notes}
	if session != nil {
		note.SessionID.String = session.ID
		note.SessionID.Valid = true
		if err := s.store.CompleteSession(ctx, session.ID, report, weak, notes); err != nil {
			return nil, storeError(err, "session")
		}
		s.metrics.SessionsCompleted.Add(1)
	}
	if err := s.store.SaveNote(ctx, note); err != nil {
		s.log.WarnContext(ctx, "Failed to store notes", "error", err)
	}

	s.log.InfoContext(ctx, "Final evaluation done", "session_id", req.SessionID, "weak_topics", weak)
	return &FinalReport{
		SessionID:       req.SessionID,
		Topics:          req.Topics,
		TotalEvaluation: report,
		WeakTopics:      weak,
		Notes:           notes,
	}, nil
}
