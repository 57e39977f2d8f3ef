// Package sanitize flattens model markdown into plain text for chat clients
// that would otherwise show the raw markup.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockBreaks = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?blockquote>`)
	listItems   = regexp.MustCompile(`<li>\s*`)
	blankRuns   = regexp.MustCompile(`\n\s*\n+`)
)

// Policy converts markdown to text. It is safe for concurrent use.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPolicy returns a Policy that strips every tag.
func NewPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

var defaultPolicy = NewPolicy()

// PlainText strips markdown and HTML from text with the default policy.
func PlainText(text string) string {
	return defaultPolicy.PlainText(text)
}

// PlainText renders text as markdown, keeps block boundaries as line breaks
// and list items as bullets, and drops all other markup. Text that fails to
// render is returned unchanged.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := blockBreaks.ReplaceAllString(buf.String(), "\n")
	out = listItems.ReplaceAllString(out, "• ")
	out = p.policy.Sanitize(out)
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
