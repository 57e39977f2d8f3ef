package study

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// DefaultWeakTopics is reported when an evaluation lists no weak topics.
const DefaultWeakTopics = "general concepts"

const weakTopicsMarker = "WEAK_TOPICS"

// ParseQuestionList splits a numbered list produced by the model into
// questions. A line is a question when one of its first three characters is
// a digit; the numbering up to the first '.' is removed. When no line
// qualifies the whole response is returned as the only question.
func ParseQuestionList(raw string) []string {
	var questions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !hasLeadingDigit(line) {
			continue
		}
		if _, rest, ok := strings.Cut(line, "."); ok {
			line = strings.TrimSpace(rest)
		}
		if line != "" {
			questions = append(questions, line)
		}
	}
	if len(questions) == 0 {
		return []string{raw}
	}
	return questions
}

func hasLeadingDigit(s string) bool {
	n := 0
	for _, r := range s {
		if n == 3 {
			break
		}
		if unicode.IsDigit(r) {
			return true
		}
		n++
	}
	return false
}

// ExtractWeakTopics returns the dash list that follows the WEAK_TOPICS marker
// of a final evaluation, joined with ", ". Blank lines inside the list are
// skipped and the first other line ends it.
func ExtractWeakTopics(evaluation string) string {
	var topics []string
	capturing := false
	for _, line := range strings.Split(evaluation, "\n") {
		if strings.Contains(strings.ToUpper(line), weakTopicsMarker) {
			capturing = true
			continue
		}
		if !capturing {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			break
		}
		if topic := strings.TrimSpace(strings.Trim(trimmed, "- ")); topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		return DefaultWeakTopics
	}
	return strings.Join(topics, ", ")
}

var scorePattern = regexp.MustCompile(`(?i)score[^0-9\n]{0,12}?(\d{1,2}(?:\.\d+)?)\s*/\s*10`)

// ParseScore extracts X from the first "Score: X/10" line of an evaluation.
// It returns nil when no score in 0..10 is present. Fractional scores are
// rounded.
func ParseScore(evaluation string) *int {
	m := scorePattern.FindStringSubmatch(evaluation)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f < 0 || f > 10 {
		return nil
	}
	score := int(math.Round(f))
	return &score
}
