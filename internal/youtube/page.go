package youtube

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// playerResponseMarker marks the start of the player response JSON in the
// watch page.
const playerResponseMarker = "ytInitialPlayerResponse = "

var errNoPlayerResponse = errors.New("ytInitialPlayerResponse not found in watch page")

// extractPlayerResponse walks the watch page scripts and returns the JSON
// object assigned to ytInitialPlayerResponse.
func extractPlayerResponse(page []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil, errNoPlayerResponse
			}
			return nil, z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			text := z.Text()
			idx := bytes.Index(text, []byte(playerResponseMarker))
			if idx < 0 {
				continue
			}
			rest := bytes.TrimLeft(text[idx+len(playerResponseMarker):], " \t\r\n")
			if obj := extractJSONObject(rest); obj != nil {
				return obj, nil
			}
		}
	}
}

// extractJSONObject returns the balanced JSON object at the start of b, or nil.
func extractJSONObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// isConsentPage reports whether YouTube served the cookie consent interstitial
// instead of the watch page.
func isConsentPage(page []byte) bool {
	return strings.Contains(string(page), "consent.youtube.com")
}
