// Package gemini implements the model client on top of Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/studybuddy/internal/config"
	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/memory"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/resilience"
)

// Request is one model call.
type Request struct {
	// System overrides the configured system instruction when set.
	System string
	// History is prior conversation, oldest first.
	History []memory.Turn
	Prompt  string
	// Temperature overrides the configured temperature when set.
	Temperature *float32
}

// Client defines the model operations used by the study services.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// generateFunc matches genai's Models.GenerateContent.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type sdkClient struct {
	generate         generateFunc
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
	breaker          *resilience.Breaker
	metrics          *metrics.Metrics
}

// NewClient creates a Gemini client with the provided configuration.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	m *metrics.Metrics,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError("gemini API key is required (set GEMINI_API_KEY or gemini.api_key)", nil)
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newSDKClient(gi.Models.GenerateContent, cfg, m, log), nil
}

func newSDKClient(generate generateFunc, cfg config.GeminiConfig, m *metrics.Metrics, log *slog.Logger) *sdkClient {
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	system := cfg.SystemInstruction
	if system == "" {
		system = DefaultSystemInstruction
	}
	baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.ModelName)

	return &sdkClient{
		generate:         generate,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:         "gemini",
			MaxFailures:  cfg.BreakerMaxFailures,
			Timeout:      cfg.Timeout,
			OpenInterval: cfg.BreakerResetInterval,
			IsFailure:    isBreakerFailure,
		}, logger),
		metrics: m,
	}
}

// isBreakerFailure counts server-side and transport failures only. Blocked
// prompts and client errors say nothing about the health of the API.
func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, errBlocked) {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}
	return true
}

func (c *sdkClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", apperrors.NewValidationError("prompt cannot be empty", nil)
	}
	c.metrics.LLMCalls.Add(1)
	c.log.DebugContext(ctx, "Generating content", "history", len(req.History), "prompt_len", len(req.Prompt))

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		var role genai.Role = genai.RoleUser
		if t.Role == memory.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	copyCfg := *c.contentConfig
	if req.System != "" {
		copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Temperature != nil {
		t := *req.Temperature
		copyCfg.Temperature = &t
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, &copyCfg)
		if err != nil {
			return err
		}
		text, err = c.extractTextFromResponse(ctx, resp)
		return err
	})
	if err != nil {
		c.metrics.LLMErrors.Add(1)
		c.log.ErrorContext(ctx, "Gemini generation failed", "error", err)
		return "", apperrors.NewUpstreamError("gemini request failed", err)
	}
	return text, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.generate(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		if errors.As(err, &genAiAPIError) && (genAiAPIError.Code == 500 || genAiAPIError.Code == 503) {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", genAiAPIError.Code)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.retryDelay):
				}
				continue
			}
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, genAiAPIError.Code, err)
		}

		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

var errBlocked = errors.New("blocked by safety filter")

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini returned no response")
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("%w: %s", errBlocked, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("gemini returned no content, finish reason: %s", finishReason)
		}
		return "", errors.New("gemini returned empty content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
