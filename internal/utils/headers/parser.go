package headers

import (
	"strings"
)

// Cookie is a single name/value pair from a Cookie header
type Cookie struct {
	Name  string
	Value string
}

// ParseHeaders converts an array of header strings ("Key: Value") into a map.
// Entries without a colon or with an empty or spaced key are skipped.
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string)
	for _, hdr := range h {
		parts := strings.SplitN(hdr, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		m[key] = strings.TrimSpace(parts[1])
	}
	return m
}

// ParseCookies splits a Cookie header value ("a=1; b=2") into pairs,
// keeping their order. A leading "Cookie:" is tolerated.
func ParseCookies(raw string) []Cookie {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "cookie:") {
		raw = raw[7:]
	}

	var out []Cookie
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		out = append(out, Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return out
}

// FormatCookies joins pairs into a Cookie header value
func FormatCookies(cookies []Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
