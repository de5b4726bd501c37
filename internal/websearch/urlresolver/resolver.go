// Package urlresolver normalises result URLs: it unwraps search-engine
// click-tracking redirects, validates scheme and host, and strips tracking
// query parameters so URL variants collapse onto one key.
package urlresolver

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// essentialParams are the only query keys that survive Clean.
var essentialParams = map[string]bool{
	"id":      true,
	"page":    true,
	"article": true,
	"post":    true,
	"slug":    true,
}

var unsafePatterns = []string{
	"javascript:", "data:", "mailto:", "tel:", "ftp:",
	"localhost", "127.0.0.1", "0.0.0.0",
}

// redirectRule describes one click-tracking wrapper.
type redirectRule struct {
	name   string
	match  func(u *url.URL) bool
	params []string
}

var redirectRules = []redirectRule{
	{
		name: "bing",
		match: func(u *url.URL) bool {
			return hostHasSuffix(u.Host, "bing.com") && strings.HasPrefix(u.Path, "/ck/a")
		},
		params: []string{"u"},
	},
	{
		name: "duckduckgo",
		match: func(u *url.URL) bool {
			return hostHasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/")
		},
		params: []string{"uddg"},
	},
	{
		name: "google",
		match: func(u *url.URL) bool {
			host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			return strings.HasPrefix(host, "google.") && u.Path == "/url"
		},
		params: []string{"q", "url"},
	},
}

// Resolve returns the final target of raw. Redirect wrappers are unwrapped;
// anything else must already carry a scheme and a host. The boolean is false
// when nothing usable could be derived.
func Resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	candidate := raw
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	for _, rule := range redirectRules {
		if !rule.match(parsed) {
			continue
		}
		target, ok := unwrap(parsed, rule.params)
		if !ok {
			return "", false
		}
		return target, true
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return candidate, true
}

// IsValid reports whether raw resolves to a URL with scheme and host.
func IsValid(raw string) bool {
	_, ok := Resolve(raw)
	return ok
}

// IsSafe rejects non-web schemes and loopback targets.
func IsSafe(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	lower := strings.ToLower(raw)
	for _, p := range unsafePatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// Clean resolves raw and keeps only the essential query parameters, in
// their original order. A URL with nothing to strip is returned as
// resolved; otherwise the fragment is dropped too. Input that cannot be
// resolved is returned unchanged.
func Clean(raw string) string {
	resolved, ok := Resolve(raw)
	if !ok {
		return raw
	}

	parsed, err := url.Parse(resolved)
	if err != nil || parsed.RawQuery == "" {
		return resolved
	}

	var kept []string
	stripped := false
	for _, pair := range strings.Split(parsed.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil || !essentialParams[strings.ToLower(name)] {
			stripped = true
			continue
		}
		kept = append(kept, pair)
	}
	if !stripped {
		return resolved
	}

	cleaned := url.URL{
		Scheme:   parsed.Scheme,
		User:     parsed.User,
		Host:     parsed.Host,
		Path:     parsed.Path,
		RawPath:  parsed.RawPath,
		RawQuery: strings.Join(kept, "&"),
	}
	return cleaned.String()
}

// Host returns the lower-cased host of raw without port, or "".
func Host(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func unwrap(parsed *url.URL, params []string) (string, bool) {
	query := parsed.Query()

	var value string
	for _, p := range params {
		if v := query.Get(p); v != "" {
			value = v
			break
		}
	}
	if value == "" {
		return "", false
	}

	// Query() already percent-decodes once; some wrappers double-encode.
	if !strings.Contains(value, "://") && strings.Contains(value, "%") {
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
	}

	if decoded, ok := decodeBase64Target(value); ok {
		value = decoded
	}

	switch {
	case strings.HasPrefix(value, "://"):
		value = "https" + value
	case strings.HasPrefix(value, "//"):
		value = "https:" + value
	case !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://"):
		value = "https://" + value
	}

	target, err := url.Parse(value)
	if err != nil || target.Host == "" {
		return "", false
	}
	return value, true
}

// decodeBase64Target handles Bing's "a1" + base64(url) encoding. "aHR0c" is
// the base64 prefix of "http".
func decodeBase64Target(value string) (string, bool) {
	encoded := value
	switch {
	case strings.HasPrefix(encoded, "a1aHR0c"):
		encoded = encoded[2:]
	case strings.HasPrefix(encoded, "aHR0c"):
	default:
		return "", false
	}

	encoded = strings.TrimRight(encoded, "=")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		decoded, err := enc.DecodeString(encoded)
		if err != nil {
			continue
		}
		s := string(decoded)
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			return s, true
		}
	}
	return "", false
}

func hostHasSuffix(host, suffix string) bool {
	host = strings.ToLower(host)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
