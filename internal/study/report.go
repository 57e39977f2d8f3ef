package study

import (
	"fmt"
	"io"
	"strings"
)

var reportRule = strings.Repeat("=", 70)

// WriteReport writes the exam report file: the topics, the final evaluation
// and the study notes, each under a ruled heading.
func WriteReport(w io.Writer, topics, evaluation, notes string) error {
	_, err := fmt.Fprintf(w, "%[1]s\nUNIVERSITY EXAM PERFORMANCE REPORT\n%[1]s\nTopics: %[2]s\n%[1]s\n\n%[3]s\n\n%[1]s\nPERSONALIZED STUDY NOTES\n%[1]s\n\n%[4]s",
		reportRule, topics, evaluation, notes)
	return err
}
