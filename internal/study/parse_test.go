package study_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/study"
)

func TestParseQuestionList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "numbered list with preamble",
			raw:  "Here are your questions:\n\n1. What is a goroutine?\n2. Explain channels.\n\nGood luck!",
			want: []string{"What is a goroutine?", "Explain channels."},
		},
		{
			name: "two digit numbering and parenthesis",
			raw:  "10) x. y\n11. Define a mutex",
			want: []string{"y", "Define a mutex"},
		},
		{
			name: "markdown bold numbering",
			raw:  "**1.** Describe the scheduler",
			want: []string{"** Describe the scheduler"},
		},
		{
			name: "digit line without a dot is kept whole",
			raw:  "Q1: What is Go",
			want: []string{"Q1: What is Go"},
		},
		{
			name: "nothing numbered falls back to raw",
			raw:  "I cannot generate questions for that.",
			want: []string{"I cannot generate questions for that."},
		},
		{
			name: "digit beyond third character is ignored",
			raw:  "Intro 1. text\n3. Real question",
			want: []string{"Real question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, study.ParseQuestionList(tt.raw))
		})
	}
}

func TestExtractWeakTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "list after marker",
			in:   "Overall Score: 6/10\n\nWEAK_TOPICS:\n- Recursion\n- Big-O notation\n\n- Graph traversal\nKeep practising!",
			want: "Recursion, Big-O notation, Graph traversal",
		},
		{
			name: "case insensitive marker",
			in:   "weak_topics:\n-Pointers\n- Interfaces -",
			want: "Pointers, Interfaces",
		},
		{
			name: "stops at first non dash line",
			in:   "WEAK_TOPICS:\nNone worth noting\n- not collected",
			want: study.DefaultWeakTopics,
		},
		{
			name: "no marker",
			in:   "Great job overall.",
			want: study.DefaultWeakTopics,
		},
		{
			name: "repeated marker keeps capturing",
			in:   "6. WEAK_TOPICS - details below\nWEAK_TOPICS:\n- Concurrency",
			want: "Concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, study.ExtractWeakTopics(tt.in))
		})
	}
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *int
	}{
		{"Score: 7/10\nMarking: ...", intPtr(7)},
		{"**Score:** 10 / 10", intPtr(10)},
		{"score - 6.5/10", intPtr(7)},
		{"Overall Score (0/10)", intPtr(0)},
		{"Marking: good", nil},
		{"Score: 12/10", nil},
	}
	for _, tt := range tests {
		got := study.ParseScore(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.Equal(t, *tt.want, *got, tt.in)
	}
}

func intPtr(v int) *int { return &v }

func TestWriteReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, study.WriteReport(&sb, "Go", "Score: 6/10", "# Notes"))

	rule := strings.Repeat("=", 70)
	want := rule + "\nUNIVERSITY EXAM PERFORMANCE REPORT\n" + rule + "\nTopics: Go\n" + rule +
		"\n\nScore: 6/10\n\n" + rule + "\nPERSONALIZED STUDY NOTES\n" + rule + "\n\n# Notes"
	assert.Equal(t, want, sb.String())
}
