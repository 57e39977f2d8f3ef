package youtube

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Track kinds.
const (
	KindManual = "manual"
	KindASR    = "asr"
)

// Segment is one caption event.
type Segment struct {
	Start time.Duration `json:"start"`
	Text  string        `json:"text"`
}

// Transcript is the parsed caption track of a video.
type Transcript struct {
	VideoID  string    `json:"video_id"`
	Title    string    `json:"title,omitempty"`
	Author   string    `json:"author,omitempty"`
	Language string    `json:"language"`
	Kind     string    `json:"kind"`
	Segments []Segment `json:"segments"`
}

// FormatTimestamp renders d as MM:SS. Minutes keep counting past 59.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}

// Text renders the transcript as "[MM:SS] text" segments joined by spaces.
// This is the form handed to the model so answers can cite timestamps.
func (t *Transcript) Text() string {
	var sb strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		sb.WriteString(FormatTimestamp(seg.Start))
		sb.WriteString("] ")
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// PlainText renders the transcript without timestamps.
func (t *Transcript) PlainText() string {
	parts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

// Duration returns the start of the last segment.
func (t *Transcript) Duration() time.Duration {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].Start
}

// json3 is the timed-text format returned for fmt=json3.
type json3 struct {
	Events []struct {
		TStartMs int64 `json:"tStartMs"`
		Segs     []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParseJSON3 parses a json3 caption payload into segments. Events without
// text (window and line-break events) are dropped.
func ParseJSON3(data []byte) ([]Segment, error) {
	var payload json3
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse json3 captions: %w", err)
	}

	segments := make([]Segment, 0, len(payload.Events))
	for _, event := range payload.Events {
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(sb.String()), " ")
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start: time.Duration(event.TStartMs) * time.Millisecond,
			Text:  text,
		})
	}
	return segments, nil
}
