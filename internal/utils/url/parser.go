package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) address
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// BaseAddress reduces an address to scheme://host[:port], lower-cased.
// Applying it to its own output returns the same value.
func BaseAddress(address string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL: %q has no scheme or host", address)
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), nil
}

// Hostname returns the lower-cased host without port, or "" when address
// does not parse
func Hostname(address string) string {
	parsed, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// SameHost reports whether both addresses share a base address
func SameHost(a, b string) bool {
	ba, err := BaseAddress(a)
	if err != nil {
		return false
	}
	bb, err := BaseAddress(b)
	if err != nil {
		return false
	}
	return ba == bb
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// ResolveAll resolves every href against base, dropping empty entries
func ResolveAll(base string, hrefs []string) []string {
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, ResolveURL(base, h))
		}
	}
	return out
}
