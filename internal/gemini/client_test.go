package gemini

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/edgard/studybuddy/internal/config"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testConfig() config.GeminiConfig {
	return config.GeminiConfig{
		ModelName:            "gemini-test",
		Temperature:          0.7,
		MaxRetries:           2,
		RetryDelaySeconds:    0,
		Timeout:              5 * time.Second,
		BreakerMaxFailures:   5,
		BreakerResetInterval: time.Minute,
	}
}

func TestGenerateBuildsContents(t *testing.T) {
	t.Parallel()

	var (
		gotModel    string
		gotContents []*genai.Content
		gotCfg      *genai.GenerateContentConfig
	)
	fake := func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel, gotContents, gotCfg = model, contents, cfg
		return textResponse("  the answer  "), nil
	}

	m := metrics.New()
	c := newSDKClient(fake, testConfig(), m, logger.Discard())

	temp := float32(0.2)
	out, err := c.Generate(context.Background(), Request{
		System:      "be brief",
		History:     []memory.Turn{memory.UserTurn("earlier q"), memory.ModelTurn("earlier a")},
		Prompt:      "new q",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)

	assert.Equal(t, "gemini-test", gotModel)
	require.Len(t, gotContents, 3)
	assert.Equal(t, string(genai.RoleUser), gotContents[0].Role)
	assert.Equal(t, string(genai.RoleModel), gotContents[1].Role)
	assert.Equal(t, "new q", gotContents[2].Parts[0].Text)
	assert.Equal(t, "be brief", gotCfg.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.2, *gotCfg.Temperature, 0.0001)
	assert.EqualValues(t, 1, m.LLMCalls.Load())

	// The override must not leak into the shared config.
	assert.Equal(t, DefaultSystemInstruction, c.contentConfig.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.7, *c.contentConfig.Temperature, 0.0001)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fake := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		if calls.Add(1) < 3 {
			return nil, &genai.APIError{Code: 503, Message: "overloaded"}
		}
		return textResponse("ok"), nil
	}

	c := newSDKClient(fake, testConfig(), nil, logger.Discard())
	out, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		resp  *genai.GenerateContentResponse
		err   error
		calls int32
	}{
		{name: "client error is not retried", err: &genai.APIError{Code: 400, Message: "bad"}, calls: 1},
		{name: "retries exhausted", err: &genai.APIError{Code: 500, Message: "boom"}, calls: 3},
		{name: "transport error", err: errors.New("connection refused"), calls: 1},
		{
			name: "blocked prompt",
			resp: &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
				BlockReason:        genai.BlockedReasonSafety,
				BlockReasonMessage: "unsafe",
			}},
			calls: 1,
		},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, calls: 1},
		{
			name: "empty text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content:      genai.NewContentFromText("   ", genai.RoleModel),
				FinishReason: genai.FinishReasonStop,
			}}},
			calls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			fake := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				calls.Add(1)
				return tt.resp, tt.err
			}
			m := metrics.New()
			c := newSDKClient(fake, testConfig(), m, logger.Discard())

			_, err := c.Generate(context.Background(), Request{Prompt: "hi"})
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeUpstream, apperrors.Code(err))
			assert.Equal(t, tt.calls, calls.Load())
			assert.EqualValues(t, 1, m.LLMErrors.Load())
		})
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	c := newSDKClient(nil, testConfig(), nil, logger.Discard())
	_, err := c.Generate(context.Background(), Request{Prompt: "  "})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), testConfig(), nil, logger.Discard())
	assert.Equal(t, apperrors.CodeConfig, apperrors.Code(err))
}

func TestBreakerFailureClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, isBreakerFailure(&genai.APIError{Code: 503}))
	assert.True(t, isBreakerFailure(&genai.APIError{Code: 429}))
	assert.False(t, isBreakerFailure(&genai.APIError{Code: 400}))
	assert.False(t, isBreakerFailure(errBlocked))
	assert.False(t, isBreakerFailure(context.Canceled))
}
