// Package browser owns the headless browser: one Session per agent loop,
// tabs opened with stealth patches, and a per-host TabCache.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrNotStarted is returned when a tab is requested before EnsureStarted
	ErrNotStarted = errors.New("browser session not started")
	// ErrSessionClosed is returned by any call after Close
	ErrSessionClosed = errors.New("browser session closed")
)

// Backend launches a browser and creates pages in it
type Backend interface {
	Launch(ctx context.Context) error
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab
type Page interface {
	ID() string
	AddScriptOnNewDocument(ctx context.Context, script string) error
	Navigate(ctx context.Context, address string) error
	Evaluate(ctx context.Context, script string, res interface{}) error
	Content(ctx context.Context) (string, error)
	Address(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	CaptureScreenshot(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}
