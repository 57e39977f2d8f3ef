// Package studytest provides fake collaborators for testing code built on the
// study service.
package studytest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edgard/studybuddy/internal/gemini"
	"github.com/edgard/studybuddy/internal/youtube"
)

// Canned model replies, keyed by the kind of prompt they answer.
const (
	VideoAnswer = "At [00:05] the speaker introduces goroutines."
	Questions   = "Sure:\n1. What is a goroutine?\n2. What is a channel?\n3. What does select do?"
	Evaluation  = "Score: 8/10\nMarking: solid\nStrong Points: clear\nWeak Points: brief\nExpected Elements: scheduler"
	FinalReport = "Overall Score: 6/10\n\nWEAK_TOPICS:\n- Channels\n- Select statement\n\nGood luck."
	Notes       = "# Notes\n- goroutines are cheap"
)

// VideoID is the ID of the transcript returned by NewTranscriber.
const VideoID = "dQw4w9WgXcQ"

// Transcriber returns a fixed transcript for any valid video URL.
type Transcriber struct {
	mu         sync.Mutex
	Transcript *youtube.Transcript
	Err        error
}

// NewTranscriber returns a Transcriber with a one-segment transcript.
func NewTranscriber() *Transcriber {
	return &Transcriber{Transcript: &youtube.Transcript{
		VideoID:  VideoID,
		Title:    "Concurrency in Go",
		Language: "en",
		Kind:     youtube.KindManual,
		Segments: []youtube.Segment{
			{Start: 5 * time.Second, Text: "goroutines are lightweight threads"},
		},
	}}
}

// SetErr makes every following call fail with err.
func (t *Transcriber) SetErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Err = err
}

func (t *Transcriber) FetchTranscript(_ context.Context, videoURL string) (*youtube.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	if _, err := youtube.ExtractVideoID(videoURL); err != nil {
		return nil, err
	}
	return t.Transcript, nil
}

// LLM answers with the canned reply matching the prompt and records every
// request.
type LLM struct {
	mu       sync.Mutex
	requests []gemini.Request
	err      error
}

// SetErr makes every following call fail with err.
func (l *LLM) SetErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Requests returns a copy of the recorded requests.
func (l *LLM) Requests() []gemini.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]gemini.Request(nil), l.requests...)
}

// Last returns the most recent request.
func (l *LLM) Last() gemini.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.requests) == 0 {
		return gemini.Request{}
	}
	return l.requests[len(l.requests)-1]
}

func (l *LLM) Generate(_ context.Context, req gemini.Request) (string, error) {
	l.mu.Lock()
	l.requests = append(l.requests, req)
	err := l.err
	l.mu.Unlock()

	if err != nil {
		return "", err
	}
	switch {
	case strings.Contains(req.Prompt, "TRANSCRIPT:"):
		return VideoAnswer, nil
	case strings.Contains(req.Prompt, "exam questions on"):
		return Questions, nil
	case strings.Contains(req.Prompt, "Student answer:"):
		return Evaluation, nil
	case strings.Contains(req.Prompt, "final performance report"):
		return FinalReport, nil
	case strings.Contains(req.Prompt, "exam preparation notes"):
		return Notes, nil
	}
	return "", fmt.Errorf("unexpected prompt: %s", req.Prompt)
}
