package study_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/study"
	"github.com/edgard/studybuddy/internal/study/studytest"
	"github.com/edgard/studybuddy/internal/youtube"
)

type fixture struct {
	svc     *study.Service
	llm     *studytest.LLM
	tr      *studytest.Transcriber
	store   database.Store
	metrics *metrics.Metrics
	memory  memory.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, logger.Discard())

	f := &fixture{
		llm:     &studytest.LLM{},
		tr:      studytest.NewTranscriber(),
		store:   store,
		metrics: metrics.New(),
		memory:  memory.NewInMemory(10),
	}
	f.svc, err = study.NewService(study.Deps{
		Transcriber:   f.tr,
		LLM:           f.llm,
		Memory:        f.memory,
		Store:         store,
		Metrics:       f.metrics,
		Logger:        logger.Discard(),
		QuestionCount: 3,
	})
	require.NoError(t, err)
	return f
}

func TestNewServiceRequiresDeps(t *testing.T) {
	t.Parallel()
	_, err := study.NewService(study.Deps{})
	assert.Error(t, err)
}

func TestAskVideo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.AskVideo(ctx, study.AskRequest{
		VideoURL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Question:       "What are goroutines?",
		ConversationID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "At [00:05] the speaker introduces goroutines.", res.Answer)
	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.Contains(t, f.llm.Last().Prompt, "[00:05] goroutines are lightweight threads")
	assert.Contains(t, f.llm.Last().Prompt, `"Concurrency in Go"`)
	assert.Empty(t, f.llm.Last().History)

	// The second question sees the first exchange.
	_, err = f.svc.AskVideo(ctx, study.AskRequest{
		VideoURL:       "dQw4w9WgXcQ",
		Question:       "And channels?",
		ConversationID: "c1",
	})
	require.NoError(t, err)
	history := f.llm.Last().History
	require.Len(t, history, 2)
	assert.Contains(t, history[0].Content, "What are goroutines?")
	assert.Equal(t, memory.RoleModel, history[1].Role)
	assert.EqualValues(t, 2, f.metrics.VideoQuestions.Load())
}

func TestAskVideoErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.AskVideo(ctx, study.AskRequest{VideoURL: " ", Question: ""})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
		assert.Contains(t, err.Error(), "video_url is required")
		assert.Contains(t, err.Error(), "question is required")
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.AskVideo(ctx, study.AskRequest{VideoURL: "https://vimeo.com/1", Question: "q"})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
		assert.True(t, strings.HasPrefix(err.Error(), "Transcript extraction failed: "))
	})

	t.Run("no captions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.tr.SetErr(youtube.ErrNoCaptions)
		_, err := f.svc.AskVideo(ctx, study.AskRequest{VideoURL: "dQw4w9WgXcQ", Question: "q"})
		assert.Equal(t, apperrors.CodeTranscriptUnavailable, apperrors.Code(err))
		assert.ErrorIs(t, err, youtube.ErrNoCaptions)
	})

	t.Run("model failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.llm.SetErr(errors.New("quota exceeded"))
		_, err := f.svc.AskVideo(ctx, study.AskRequest{VideoURL: "dQw4w9WgXcQ", Question: "q"})
		assert.Equal(t, apperrors.CodeUpstream, apperrors.Code(err))
		assert.Equal(t, "AI processing failed: quota exceeded", err.Error())

		turns, err := f.memory.Recent(ctx, "", 0)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func TestExamFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.StartSession(ctx, study.StartRequest{Topics: "Go concurrency", Owner: "tg:1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.ID, "session_"))
	assert.Equal(t, []string{"What is a goroutine?", "What is a channel?", "What does select do?"}, []string(session.Questions))
	assert.Contains(t, f.llm.Last().Prompt, "exactly 3 exam questions")

	// Answer question 0 through the session defaults.
	eval, err := f.svc.SubmitAnswer(ctx, study.AnswerRequest{SessionID: session.ID, AnswerText: "A lightweight thread"})
	require.NoError(t, err)
	require.NotNil(t, eval.Score)
	assert.Equal(t, 8, *eval.Score)
	assert.Equal(t, 0, eval.QuestionIndex)
	assert.Equal(t, "What is a goroutine?", eval.Question)
	assert.Equal(t, 1, eval.NextIndex)
	assert.Contains(t, f.llm.Last().Prompt, "Topic: Go concurrency")

	skip, err := f.svc.SkipQuestion(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, skip.QuestionIndex)
	assert.Equal(t, study.SkippedEvaluation, skip.Evaluation)
	assert.Equal(t, 2, skip.NextIndex)

	active, err := f.svc.ActiveSession(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.Session.ID)
	assert.Equal(t, 2, active.NextIndex())
	assert.Equal(t,
		"Q1: What is a goroutine?\nA1: A lightweight thread\nEval1: Score: 8/10\nMarking: solid\nStrong Points: clear\nWeak Points: brief\nExpected Elements: scheduler\n\n"+
			"Q2: What is a channel?\nA2: [SKIPPED]\nEval2: Not attempted\n",
		active.Conversation())

	report, err := f.svc.FinalEvaluation(ctx, study.FinalRequest{SessionID: session.ID})
	require.NoError(t, err)
	assert.Equal(t, "Channels, Select statement", report.WeakTopics)
	assert.Equal(t, "Go concurrency", report.Topics)
	assert.Equal(t, "# Notes\n- goroutines are cheap", report.Notes)
	assert.Contains(t, f.llm.Last().Prompt, "Channels, Select statement")

	view, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, database.SessionCompleted, view.Session.Status)
	assert.Equal(t, "Channels, Select statement", view.Session.WeakTopics)

	_, err = f.svc.SubmitAnswer(ctx, study.AnswerRequest{SessionID: session.ID, AnswerText: "late"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))

	notes, err := f.svc.ListNotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, session.ID, notes[0].SessionID.String)

	snap := f.metrics.Snapshot()
	assert.EqualValues(t, 1, snap["sessions_started"])
	assert.EqualValues(t, 1, snap["sessions_completed"])
	assert.EqualValues(t, 1, snap["answers_evaluated"])
	assert.EqualValues(t, 1, snap["questions_skipped"])
}

func TestStartSessionExpiresPreviousSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.StartSession(ctx, study.StartRequest{Topics: "a", Owner: "tg:2"})
	require.NoError(t, err)
	second, err := f.svc.StartSession(ctx, study.StartRequest{Topics: "b", Owner: "tg:2"})
	require.NoError(t, err)

	view, err := f.svc.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, database.SessionExpired, view.Session.Status)

	active, err := f.svc.ActiveSession(ctx, "tg:2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.Session.ID)

	n, err := f.svc.AbandonSessions(ctx, "tg:2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = f.svc.ActiveSession(ctx, "tg:2")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))
}

func TestSubmitAnswerStateless(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	eval, err := f.svc.SubmitAnswer(ctx, study.AnswerRequest{
		QuestionText: "What is a mutex?",
		AnswerText:   "A lock",
		Topic:        "Go",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, *eval.Score)
	assert.Equal(t, -1, eval.NextIndex)

	_, err = f.svc.SubmitAnswer(ctx, study.AnswerRequest{AnswerText: "A lock"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	assert.Contains(t, err.Error(), "question_text is required")

	_, err = f.svc.SubmitAnswer(ctx, study.AnswerRequest{SessionID: "session_missing", AnswerText: "x"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))

	bad := -1
	_, err = f.svc.SubmitAnswer(ctx, study.AnswerRequest{QuestionText: "q", Topic: "t", AnswerText: "x", QuestionIndex: &bad})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
}

func TestSubmitAnswerOutOfRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.StartSession(ctx, study.StartRequest{Topics: "Go"})
	require.NoError(t, err)

	idx := 7
	_, err = f.svc.SubmitAnswer(ctx, study.AnswerRequest{SessionID: session.ID, QuestionIndex: &idx, AnswerText: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestFinalEvaluationWithoutAnswers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.StartSession(ctx, study.StartRequest{Topics: "Go", Owner: "tg:3"})
	require.NoError(t, err)
	calls := len(f.llm.Requests())

	_, err = f.svc.FinalEvaluation(ctx, study.FinalRequest{SessionID: session.ID})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	assert.Contains(t, err.Error(), "no answers to evaluate")
	assert.Len(t, f.llm.Requests(), calls)

	view, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, database.SessionActive, view.Session.Status)

	notes, err := f.svc.ListNotes(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSessionStateRules(t *testing.T) {
	t.Parallel()

	// finished moves the session out of the active state.
	finished := map[string]func(t *testing.T, f *fixture, id string){
		"completed": func(t *testing.T, f *fixture, id string) {
			_, err := f.svc.SubmitAnswer(context.Background(), study.AnswerRequest{SessionID: id, AnswerText: "A lightweight thread"})
			require.NoError(t, err)
			_, err = f.svc.FinalEvaluation(context.Background(), study.FinalRequest{SessionID: id})
			require.NoError(t, err)
		},
		"expired": func(t *testing.T, f *fixture, _ string) {
			n, err := f.svc.AbandonSessions(context.Background(), "tg:4")
			require.NoError(t, err)
			require.EqualValues(t, 1, n)
		},
	}

	tests := []struct {
		name  string
		state string
		call  func(f *fixture, id string) error
		want  string
	}{
		{"answer completed", "completed", submit, "is completed"},
		{"skip completed", "completed", skip, "is completed"},
		{"answer expired", "expired", submit, "is expired"},
		{"skip expired", "expired", skip, "is expired"},
		{"finish expired", "expired", finish, "has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			session, err := f.svc.StartSession(context.Background(), study.StartRequest{Topics: "Go", Owner: "tg:4"})
			require.NoError(t, err)
			finished[tt.state](t, f, session.ID)

			err = tt.call(f, session.ID)
			assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func submit(f *fixture, id string) error {
	_, err := f.svc.SubmitAnswer(context.Background(), study.AnswerRequest{SessionID: id, AnswerText: "late"})
	return err
}

func skip(f *fixture, id string) error {
	_, err := f.svc.SkipQuestion(context.Background(), id, nil)
	return err
}

func finish(f *fixture, id string) error {
	_, err := f.svc.FinalEvaluation(context.Background(), study.FinalRequest{SessionID: id})
	return err
}

func TestFinalEvaluationStateless(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	report, err := f.svc.FinalEvaluation(ctx, study.FinalRequest{
		Topics:           "Go",
		FullConversation: "Q1: x\nA1: y\nEval1: Score: 3/10",
	})
	require.NoError(t, err)
	assert.Equal(t, "Channels, Select statement", report.WeakTopics)
	assert.Empty(t, report.SessionID)

	_, err = f.svc.FinalEvaluation(ctx, study.FinalRequest{Topics: "Go"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	assert.Contains(t, err.Error(), "full_conversation is required")
}

func TestNotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.GenerateNotes(ctx, study.NotesRequest{Topic: "Go", FocusAreas: "select", ConversationID: "n1"})
	require.NoError(t, err)
	assert.Positive(t, note.ID)
	assert.Contains(t, f.llm.Last().Prompt, "weak areas: select")

	turns, err := f.memory.Recent(ctx, "n1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Create notes for: Go", turns[0].Content)

	_, err = f.svc.GenerateNotes(ctx, study.NotesRequest{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))

	require.NoError(t, f.svc.DeleteNote(ctx, note.ID))
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(f.svc.DeleteNote(ctx, note.ID)))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(f.svc.DeleteNote(ctx, 0)))

	require.NoError(t, f.svc.ResetConversation(ctx, "n1"))
	turns, err = f.memory.Recent(ctx, "n1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
