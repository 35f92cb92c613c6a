package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var canonicalIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

var (
	errEmptyIdentifier = errors.New("video URL or identifier is required")
	errUnrecognized    = errors.New("unrecognized video URL; use a watch, youtu.be, embed or shorts link")
)

var watchHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
}

// ExtractIdentifier returns the canonical video identifier for a bare ID or
// any recognized link shape: /watch?v=ID, youtu.be/ID, /embed/ID, /shorts/ID.
func ExtractIdentifier(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyIdentifier
	}
	if canonicalIDRE.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUnrecognized, err)
	}
	if u.User != nil {
		return "", errUnrecognized
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", errUnrecognized
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = firstSegment(u.Path)
	case isWatchHost(host):
		id = fromWatchHost(u)
	}
	if id == "" || !canonicalIDRE.MatchString(id) {
		return "", errUnrecognized
	}
	return id, nil
}

func isWatchHost(host string) bool {
	_, ok := watchHosts[host]
	return ok
}

func fromWatchHost(u *url.URL) string {
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 {
		switch parts[0] {
		case "embed", "shorts", "v", "live":
			return parts[1]
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// IsCanonicalIdentifier reports whether id is safe to use as a cache key.
func IsCanonicalIdentifier(id string) bool {
	return canonicalIDRE.MatchString(id)
}
