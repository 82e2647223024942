package scan

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	schemePrefix    = regexp.MustCompile(`(?i)^https?://`)
	wwwPrefix       = regexp.MustCompile(`(?i)^www\.`)
	bareHostPattern = regexp.MustCompile(`(?i)^[\w.-]+\.[a-z]{2,}`)
)

// LooksLikeURL reports whether a decoded payload should be treated as a web
// address. An absolute URL decides on its scheme alone; only text that does
// not parse as one falls back to prefix checks, and to the bare hostname
// pattern when bareHostname is set.
func LooksLikeURL(text string, bareHostname bool) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if u, err := url.ParseRequestURI(text); err == nil && u.Scheme != "" {
		scheme := strings.ToLower(u.Scheme)
		return scheme == "http" || scheme == "https"
	}

	if schemePrefix.MatchString(text) || wwwPrefix.MatchString(text) {
		return true
	}
	return bareHostname && bareHostPattern.MatchString(text)
}

// NormalizeURL trims the payload and prefixes https:// when it carries no
// http(s) scheme.
func NormalizeURL(text string) string {
	target := strings.TrimSpace(text)
	if !schemePrefix.MatchString(target) {
		target = "https://" + target
	}
	return target
}
