package automation

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// MatchesURL reports whether the page at rawURL falls under one of the
// automation's source patterns. A pattern matches on an exact hostname, a
// dot-boundary subdomain, or the same registrable domain. Bare substring
// containment is deliberately not used: "notexample.com" must not match a
// pattern of "example.com".
func (d Descriptor) MatchesURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, pattern := range SplitFields(d.Sources) {
		if hostMatches(host, normalizePattern(pattern)) {
			return true
		}
	}
	return false
}

// normalizePattern reduces a source pattern to a bare hostname. Users
// paste full URLs, so scheme and any path ("example.com/jobs") are
// stripped before host comparison.
func normalizePattern(pattern string) string {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	pattern = strings.TrimPrefix(pattern, "https://")
	pattern = strings.TrimPrefix(pattern, "http://")
	if i := strings.IndexByte(pattern, '/'); i >= 0 {
		pattern = pattern[:i]
	}
	return pattern
}

func hostMatches(host, pattern string) bool {
	if pattern == "" {
		return false
	}
	if host == pattern {
		return true
	}
	if strings.HasSuffix(host, "."+pattern) {
		return true
	}
	hostBase, hostErr := publicsuffix.EffectiveTLDPlusOne(host)
	patternBase, patternErr := publicsuffix.EffectiveTLDPlusOne(pattern)
	if hostErr != nil || patternErr != nil {
		return false
	}
	return hostBase == patternBase
}
