package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned when no video ID can be found in the input.
var ErrInvalidURL = errors.New("not a valid YouTube video URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes are the URL forms that carry the ID as the second path segment.
var pathPrefixes = map[string]bool{
	"embed":  true,
	"v":      true,
	"e":      true,
	"shorts": true,
	"live":   true,
}

// ExtractVideoID returns the 11 character video ID of a YouTube URL. Bare IDs
// are accepted as is.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch" || u.Path == "/watch/":
			id = u.Query().Get("v")
		case len(segments) >= 2 && pathPrefixes[segments[0]]:
			id = segments[1]
		}
	default:
		return "", fmt.Errorf("%w: unsupported host %q", ErrInvalidURL, u.Hostname())
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return id, nil
}

// WatchURL returns the canonical watch URL of a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
