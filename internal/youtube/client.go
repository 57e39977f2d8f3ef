// Package youtube fetches and parses YouTube caption tracks.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgard/studybuddy/internal/cache"
	"github.com/edgard/studybuddy/internal/metrics"
	"github.com/edgard/studybuddy/internal/resilience"
)

var (
	// ErrNoCaptions is returned when a video has no usable caption track.
	ErrNoCaptions = errors.New("no captions available for this video")
	// ErrVideoUnavailable is returned when the video cannot be played.
	ErrVideoUnavailable = errors.New("video unavailable")
)

// maxBodySize caps watch page and caption downloads.
const maxBodySize = 8 << 20

// Transcriber fetches transcripts. It is implemented by *Client.
type Transcriber interface {
	FetchTranscript(ctx context.Context, videoURL string) (*Transcript, error)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Languages         []string
	UserAgent         string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	HTTPClient        *http.Client
	Cache             *cache.Tiered
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// Client scrapes the watch page for caption tracks and downloads them.
type Client struct {
	baseURL   string
	languages []string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	breaker   *resilience.Breaker
	cache     *cache.Tiered
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewClient creates a Client. Cache and Metrics are optional.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.youtube.com"
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "youtube")

	retry := resilience.DefaultRetryConfig
	retry.MaxRetries = opts.MaxRetries

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		languages: opts.Languages,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		retry:     retry,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:      "youtube",
			Timeout:   4 * opts.RequestTimeout,
			IsFailure: isBreakerFailure,
		}, log),
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     log,
	}
}

// isBreakerFailure keeps per-video problems from opening the circuit.
func isBreakerFailure(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrNoCaptions),
		errors.Is(err, ErrVideoUnavailable),
		errors.Is(err, ErrInvalidURL):
		return false
	}
	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.IsRetryableStatus(statusErr.StatusCode)
	}
	return true
}

// FetchTranscript returns the transcript of the video at videoURL, which may
// also be a bare video ID.
func (c *Client) FetchTranscript(ctx context.Context, videoURL string) (*Transcript, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	key := cache.Key(append([]string{"transcript", videoID}, c.languages...)...)
	if c.cache != nil {
		if cached, ok := cache.GetJSON[*Transcript](ctx, c.cache, key); ok && cached != nil {
			c.log.Debug("Transcript cache hit", "video_id", videoID)
			return cached, nil
		}
	}

	c.metrics.TranscriptFetches.Add(1)
	start := time.Now()

	var transcript *Transcript
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		transcript, fetchErr = c.fetch(ctx, videoID)
		return fetchErr
	})
	if err != nil {
		c.metrics.TranscriptFailures.Add(1)
		c.log.Warn("Transcript fetch failed", "video_id", videoID, "error", err)
		return nil, err
	}

	c.log.Info("Transcript fetched",
		"video_id", videoID,
		"language", transcript.Language,
		"kind", transcript.Kind,
		"segments", len(transcript.Segments),
		"duration", time.Since(start))

	if c.cache != nil {
		cache.SetJSON(ctx, c.cache, key, transcript)
	}
	return transcript, nil
}

func (c *Client) fetch(ctx context.Context, videoID string) (*Transcript, error) {
	page, err := c.get(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID)+"&hl=en")
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}

	raw, err := extractPlayerResponse(page)
	if err != nil {
		if isConsentPage(page) {
			return nil, fmt.Errorf("%w: consent page served instead of watch page", ErrVideoUnavailable)
		}
		return nil, err
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}

	if ps := player.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		reason := ps.Reason
		if reason == "" {
			reason = ps.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, reason)
	}

	var tracks []CaptionTrack
	if player.Captions != nil {
		tracks = player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	}
	track, ok := PickTrack(tracks, c.languages)
	if !ok {
		return nil, ErrNoCaptions
	}

	captionURL, err := withFormat(track.BaseURL, "json3")
	if err != nil {
		return nil, fmt.Errorf("caption URL: %w", err)
	}
	body, err := c.get(ctx, captionURL)
	if err != nil {
		return nil, fmt.Errorf("fetch captions: %w", err)
	}

	segments, err := ParseJSON3(body)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrNoCaptions
	}

	transcript := &Transcript{
		VideoID:  videoID,
		Language: track.LanguageCode,
		Kind:     track.kind(),
		Segments: segments,
	}
	if vd := player.VideoDetails; vd != nil {
		transcript.Title = vd.Title
		transcript.Author = vd.Author
	}
	return transcript, nil
}

// get performs a rate limited GET with retries and returns the body.
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	resp, err := resilience.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func withFormat(baseURL, format string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("fmt", format)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
