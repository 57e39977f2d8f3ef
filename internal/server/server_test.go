package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/database"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/study"
	"github.com/edgard/studybuddy/internal/study/studytest"
	"github.com/edgard/studybuddy/internal/youtube"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	handler http.Handler
	llm     *studytest.LLM
	tr      *studytest.Transcriber
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, rl config.RateLimitConfig) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, logger.Discard())

	f := &fixture{
		llm:     &studytest.LLM{},
		tr:      studytest.NewTranscriber(),
		metrics: metrics.New(),
	}
	svc, err := study.NewService(study.Deps{
		Transcriber:   f.tr,
		LLM:           f.llm,
		Memory:        memory.NewInMemory(10),
		Store:         store,
		Metrics:       f.metrics,
		Logger:        logger.Discard(),
		QuestionCount: 3,
	})
	require.NoError(t, err)

	f.handler = New(Options{
		Config: config.ServerConfig{
			Addr:           "127.0.0.1:0",
			Mode:           gin.TestMode,
			AllowedOrigins: []string{"*"},
		},
		RateLimit: rl,
		Service:   svc,
		Store:     store,
		Metrics:   f.metrics,
		Logger:    logger.Discard(),
	}).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestWelcome(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "University Exam Prep Backend is Running", decode[map[string]string](t, rec)["message"])
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://frontend.example")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAskVideo(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodPost, "/main", map[string]string{
		"video_url": "https://youtu.be/" + studytest.VideoID,
		"question":  "What are goroutines?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "https://youtu.be/"+studytest.VideoID, body["video_url"])
	assert.Equal(t, "What are goroutines?", body["question"])
	assert.Equal(t, studytest.VideoAnswer, body["answer"])
}

func TestAskVideoErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     any
		trErr    error
		llmErr   error
		wantCode int
		wantErr  string
		detail   string
	}{
		{
			name:     "malformed json",
			body:     `{"video_url":`,
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeInvalidInput,
		},
		{
			name:     "missing fields",
			body:     map[string]string{},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeInvalidInput,
			detail:   "video_url is required",
		},
		{
			name:     "invalid url",
			body:     map[string]string{"video_url": "https://example.com/x", "question": "q"},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeInvalidInput,
			detail:   "Transcript extraction failed",
		},
		{
			name:     "no captions",
			body:     map[string]string{"video_url": "https://youtu.be/" + studytest.VideoID, "question": "q"},
			trErr:    youtube.ErrNoCaptions,
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeTranscriptUnavailable,
			detail:   "Transcript extraction failed",
		},
		{
			name:     "model failure",
			body:     map[string]string{"video_url": "https://youtu.be/" + studytest.VideoID, "question": "q"},
			llmErr:   errors.New("quota exceeded"),
			wantCode: http.StatusInternalServerError,
			wantErr:  apperrors.CodeUpstream,
			detail:   "AI processing failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, config.RateLimitConfig{})
			f.tr.SetErr(tt.trErr)
			f.llm.SetErr(tt.llmErr)

			rec := f.do(t, http.MethodPost, "/main", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantErr, body.Code)
			assert.Contains(t, body.Detail, tt.detail)
		})
	}
}

func TestExamFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodPost, "/startsession", map[string]string{"user_topics": "Go concurrency"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[startSessionResponse](t, rec)
	require.True(t, strings.HasPrefix(started.SessionID, "session_"))
	assert.Equal(t, 3, started.TotalQuestions)
	assert.Equal(t, "What is a goroutine?", started.Questions[0])
	assert.Equal(t, "Go concurrency", started.Topics)

	rec = f.do(t, http.MethodPost, "/submitanswer", map[string]any{
		"session_id":  started.SessionID,
		"answer_text": "A lightweight thread managed by the runtime.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eval := decode[study.Evaluation](t, rec)
	assert.Equal(t, studytest.Evaluation, eval.Evaluation)
	require.NotNil(t, eval.Score)
	assert.Equal(t, 8, *eval.Score)
	assert.Equal(t, 1, eval.NextIndex)

	rec = f.do(t, http.MethodPost, "/sessions/"+started.SessionID+"/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	skipped := decode[study.Evaluation](t, rec)
	assert.Equal(t, study.SkippedEvaluation, skipped.Evaluation)
	assert.Equal(t, 1, skipped.QuestionIndex)
	assert.Equal(t, 2, skipped.NextIndex)

	rec = f.do(t, http.MethodGet, "/sessions/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[sessionResponse](t, rec)
	assert.Equal(t, database.SessionActive, view.Status)
	require.Len(t, view.Answers, 2)
	assert.True(t, view.Answers[1].Skipped)
	assert.Equal(t, study.SkippedAnswer, view.Answers[1].Answer)
	assert.Equal(t, 2, view.NextIndex)

	rec = f.do(t, http.MethodPost, "/finalevaluation", map[string]string{"session_id": started.SessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[map[string]string](t, rec)
	assert.Equal(t, studytest.FinalReport, report["total_evaluation"])
	assert.Equal(t, "Channels, Select statement", report["weak_topics"])
	assert.Equal(t, studytest.Notes, report["notes"])

	rec = f.do(t, http.MethodGet, "/sessions/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, database.SessionCompleted, decode[sessionResponse](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/submitanswer", map[string]any{
		"session_id":  started.SessionID,
		"answer_text": "too late",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatelessEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodPost, "/submitanswer", map[string]string{
		"question_text": "What is a channel?",
		"answer_text":   "A typed pipe.",
		"topic":         "Go",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, studytest.Evaluation, decode[study.Evaluation](t, rec).Evaluation)

	rec = f.do(t, http.MethodPost, "/submitanswer", map[string]string{"answer_text": "orphan"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/finalevaluation", map[string]string{
		"topics":            "Go",
		"full_conversation": "Q1: What is a channel?\nA1: A typed pipe.\nEval1: Score: 8/10\n",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Channels, Select statement", decode[map[string]string](t, rec)["weak_topics"])
}

func TestSessionNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodGet, "/sessions/session_missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeNotFound, decode[ErrorResponse](t, rec).Code)

	rec = f.do(t, http.MethodPost, "/sessions/session_missing/skip", map[string]int{"question_index": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodPost, "/generate_notes_only", map[string]string{
		"topic":       "Go channels",
		"focus_areas": "buffering",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "Go channels", created["topic"])
	assert.Equal(t, studytest.Notes, created["notes"])

	rec = f.do(t, http.MethodGet, "/notes?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[map[string][]noteResponse](t, rec)["notes"]
	require.Len(t, listed, 1)
	assert.Equal(t, "buffering", listed[0].FocusAreas)

	rec = f.do(t, http.MethodGet, "/notes?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/notes/"+strconv.FormatInt(listed[0].ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/notes/"+strconv.FormatInt(listed[0].ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/notes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetConversation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodPost, "/conversations/c1/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{})

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "database": "ok"}, decode[map[string]string](t, rec))

	f.do(t, http.MethodPost, "/main", map[string]string{
		"video_url": "https://youtu.be/" + studytest.VideoID,
		"question":  "q",
	})
	rec = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "video_questions 1\n")
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2})

	for range 2 {
		rec := f.do(t, http.MethodPost, "/generate_notes_only", map[string]string{"topic": "Go"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/generate_notes_only", map[string]string{"topic": "Go"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), f.metrics.RateLimited.Load())

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestClientLimitersDropIdleClients(t *testing.T) {
	t.Parallel()

	l := newClientLimiters(60, 1)
	start := time.Now()

	ok, _ := l.reserve("a", start)
	require.True(t, ok)
	ok, wait := l.reserve("a", start)
	require.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.reserve("b", start.Add(idleClientTTL+time.Second))
	require.True(t, ok)
	ok, _ = l.reserve("c", start.Add(2*idleClientTTL+2*time.Second))
	require.True(t, ok)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "c")
}
