package study

import (
	"fmt"
	"strings"

	"github.com/edgard/studybuddy/internal/youtube"
)

// professorInstruction is the system instruction of the exam flow.
const professorInstruction = `You are a university professor who prepares students for written exams. You are strict but fair, and every piece of feedback you give is concrete and actionable.`

// videoPrompt asks a question about a timestamped transcript.
func videoPrompt(t *youtube.Transcript, question string) string {
	var sb strings.Builder
	sb.WriteString("The student is watching a YouTube video")
	if t.Title != "" {
		fmt.Fprintf(&sb, " titled %q", t.Title)
	}
	if t.Author != "" {
		fmt.Fprintf(&sb, " by %s", t.Author)
	}
	sb.WriteString(" and has a question about it.\n\n")
	sb.WriteString("Every caption line of the transcript below starts with its [MM:SS] timestamp.\n\n")
	sb.WriteString("TRANSCRIPT:\n")
	sb.WriteString(t.Text())
	sb.WriteString("\n\nQUESTION:\n")
	sb.WriteString(question)
	sb.WriteString(`

INSTRUCTIONS:
1. Answer thoroughly using only what the transcript says.
2. Cite the moment that supports each point with its timestamp in [MM:SS] form, for example "Around [04:12] the speaker defines ...". An answer without timestamps is incomplete.
3. If the transcript does not cover the question, say so plainly.`)
	return sb.String()
}

// questionsPrompt asks for a numbered list of exactly n exam questions.
func questionsPrompt(topics string, n int) string {
	return fmt.Sprintf(`Write exactly %[1]d exam questions on the following topics: %[2]s

The questions must:
- match the level of a university or competitive exam;
- combine conceptual, analytical, applied and problem-solving questions;
- check both theory and its practical use, and require critical thinking.

Reply with a numbered list from 1 to %[1]d, one question per line in the form "N. question", and nothing else.`, n, topics)
}

// evaluationPrompt asks for a graded evaluation of one answer. The reply must
// start with "Score: X/10" so ParseScore can read it.
func evaluationPrompt(topic, question, answer string) string {
	return fmt.Sprintf(`Grade this exam answer as you would a real university paper.

Topic: %s
Question: %s
Student answer: %s

Reply in exactly this layout:
Score: X/10
Marking: how the marks were awarded
Strong Points: what the student got right
Weak Points: what is missing or wrong
Expected Elements: the key points a full-mark answer covers`, topic, question, answer)
}

// finalEvaluationPrompt asks for the overall report. The report must end with
// a WEAK_TOPICS dash list so ExtractWeakTopics can read it.
func finalEvaluationPrompt(topics, conversation string) string {
	if strings.TrimSpace(conversation) == "" {
		conversation = "(the student did not answer any question)"
	}
	return fmt.Sprintf(`Write the final performance report of a practice exam.

Topics: %s

Questions, answers and per-question evaluations:
%s

The report covers:
1. Overall Score (X/10) across all answers
2. Performance Analysis
3. Strong Areas
4. Areas Requiring Improvement, naming the exact gaps
5. Recommendations for the next study sessions

Finish with the topics that need the most work, precisely named, in this exact form:
WEAK_TOPICS:
- first topic
- second topic

Be honest and encouraging.`, topics, conversation)
}

// notesPrompt asks for study notes, weighted towards focusAreas when given.
func notesPrompt(topics, focusAreas string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write exam preparation notes on: %s\n\n", topics)
	if focusAreas != "" {
		fmt.Fprintf(&sb, "Spend most of the notes on these weak areas: %s\n\n", focusAreas)
		sb.WriteString(`For each weak area include:
- a clear explanation of the core ideas, broken down step by step
- typical exam questions and the mistakes students make on them
- key definitions, formulas or frameworks where they apply
- a worked example and a memory aid

Cover the remaining topics briefly with their essential definitions and facts.
`)
	} else {
		sb.WriteString(`Include:
- core concepts and definitions
- key theories, principles and formulas
- typical exam questions with worked examples
`)
	}
	sb.WriteString(`
Format with Markdown headers, bold key terms, bullet points for facts, numbered steps for procedures, and "EXAM TIP:" lines for exam advice.`)
	return sb.String()
}
