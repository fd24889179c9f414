package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MaxURLLength bounds the size of a submitted URL.
const MaxURLLength = 2048

// DefaultAllowedHosts are the video hosts accepted when no allow-list is configured.
var DefaultAllowedHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"youtu.be",
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/|youtube\.com/watch/\?v=)([^&\n?#/]+)`),
	regexp.MustCompile(`(?i)youtube\.com/watch\?.*&v=([^&#]+)`),
}

// ValidateSourceURL checks that raw is an absolute http(s) URL. When
// allowedHosts is non-empty the host must match one entry exactly
// (case-insensitive, port ignored).
func ValidateSourceURL(raw string, allowedHosts []string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrMalformedURL, MaxURLLength)
	}
	if strings.ContainsAny(raw, " \t\r\n\x00") {
		return nil, fmt.Errorf("%w: contains whitespace or control characters", ErrMalformedURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrUnsupportedScheme)
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials are not allowed", ErrMalformedURL)
	}

	if len(allowedHosts) > 0 && !hostAllowed(u.Hostname(), allowedHosts) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHost, u.Hostname())
	}

	return u, nil
}

func hostAllowed(host string, allowedHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range allowedHosts {
		if strings.ToLower(strings.TrimSpace(h)) == host {
			return true
		}
	}
	return false
}

// ExtractVideoID returns the YouTube video id embedded in rawURL, or "" when
// none of the known URL shapes match.
func ExtractVideoID(rawURL string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}
