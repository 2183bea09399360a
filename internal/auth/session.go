package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/dealcrawl/internal/utils/headers"
)

const sitePrefix = "site:"

// ErrExpired is returned for a site session past its expiry
var ErrExpired = errors.New("session expired")

// SiteSession holds what a browser needs to look logged in on a site
type SiteSession struct {
	Site      string            `json:"site"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie represents a browser cookie
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// NewSiteSession builds a session from a raw Cookie header and extra
// "Key: Value" headers. ttl <= 0 means no expiry.
func NewSiteSession(site, cookieHeader string, extra []string, ttl time.Duration) *SiteSession {
	s := &SiteSession{
		Site:      site,
		Headers:   headers.ParseHeaders(extra),
		CreatedAt: time.Now(),
	}
	for _, c := range headers.ParseCookies(cookieHeader) {
		s.Cookies = append(s.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	if ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(ttl)
	}
	return s
}

// RequestHeaders returns the headers to send with every request, with the
// cookies folded into a Cookie header
func (s *SiteSession) RequestHeaders() map[string]string {
	out := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		out[k] = v
	}
	if len(s.Cookies) > 0 {
		pairs := make([]headers.Cookie, 0, len(s.Cookies))
		for _, c := range s.Cookies {
			pairs = append(pairs, headers.Cookie{Name: c.Name, Value: c.Value})
		}
		out["Cookie"] = headers.FormatCookies(pairs)
	}
	return out
}

// SaveSiteSession stores a site session
func (v *Vault) SaveSiteSession(s *SiteSession) error {
	if s.Site == "" {
		return fmt.Errorf("session site cannot be empty")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return v.Set(sitePrefix+s.Site, string(data))
}

// LoadSiteSession loads the session for site
func (v *Vault) LoadSiteSession(site string) (*SiteSession, error) {
	data, err := v.Get(sitePrefix + site)
	if err != nil {
		return nil, err
	}

	var s SiteSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		return nil, ErrExpired
	}
	return &s, nil
}

// DeleteSiteSession removes the session for site
func (v *Vault) DeleteSiteSession(site string) error {
	return v.Delete(sitePrefix + site)
}
