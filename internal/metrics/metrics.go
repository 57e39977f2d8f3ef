// Package metrics tracks operational counters and renders them as text.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics holds the counters shared by the service layer and the transports.
// The zero value is ready to use.
type Metrics struct {
	VideoQuestions     atomic.Int64
	TranscriptFetches  atomic.Int64
	TranscriptFailures atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	SessionsStarted    atomic.Int64
	SessionsCompleted  atomic.Int64
	AnswersEvaluated   atomic.Int64
	QuestionsSkipped   atomic.Int64
	NotesGenerated     atomic.Int64
	RateLimited        atomic.Int64

	cacheStats atomic.Pointer[func() (hits, misses int64)]
}

// keys fixes the output order of Format.
var keys = []string{
	"video_questions",
	"transcript_fetches", "transcript_failures",
	"transcript_cache_hits", "transcript_cache_misses",
	"llm_calls", "llm_errors",
	"sessions_started", "sessions_completed",
	"answers_evaluated", "questions_skipped",
	"notes_generated",
	"rate_limited",
}

// New returns an empty Metrics.
func New() *Metrics {
	return &Metrics{}
}

// AttachCacheStats reports the transcript cache counters with the others.
func (m *Metrics) AttachCacheStats(stats func() (hits, misses int64)) {
	m.cacheStats.Store(&stats)
}

// Snapshot returns the current value of every counter.
func (m *Metrics) Snapshot() map[string]int64 {
	var hits, misses int64
	if stats := m.cacheStats.Load(); stats != nil {
		hits, misses = (*stats)()
	}
	return map[string]int64{
		"video_questions":         m.VideoQuestions.Load(),
		"transcript_fetches":      m.TranscriptFetches.Load(),
		"transcript_failures":     m.TranscriptFailures.Load(),
		"transcript_cache_hits":   hits,
		"transcript_cache_misses": misses,
		"llm_calls":               m.LLMCalls.Load(),
		"llm_errors":              m.LLMErrors.Load(),
		"sessions_started":        m.SessionsStarted.Load(),
		"sessions_completed":      m.SessionsCompleted.Load(),
		"answers_evaluated":       m.AnswersEvaluated.Load(),
		"questions_skipped":       m.QuestionsSkipped.Load(),
		"notes_generated":         m.NotesGenerated.Load(),
		"rate_limited":            m.RateLimited.Load(),
	}
}

// Format renders the counters one per line as "name value".
func (m *Metrics) Format() string {
	snap := m.Snapshot()
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, snap[k])
	}
	return sb.String()
}

// Keys returns the counter names in display order.
func Keys() []string {
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}
