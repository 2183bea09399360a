package models

import "time"

// PageState is the snapshot of a tab after one action executed. Only the
// fields the action kind defines are set: Screenshot fills Screenshot,
// ExtractText fills ExtractedText, everything else fills HTML.
type PageState struct {
	Address             string               `json:"address"`
	Title               string               `json:"title,omitempty"`
	HTML                *string              `json:"html,omitempty"`
	Screenshot          []byte               `json:"screenshot,omitempty"`
	ExtractedText       *string              `json:"extracted_text,omitempty"`
	Error               *string              `json:"error,omitempty"`
	InteractiveElements []InteractiveElement `json:"interactive_elements,omitempty"`
	CapturedAt          time.Time            `json:"captured_at"`
}

// HTMLString returns the page HTML or "" when the action did not fetch it
func (p *PageState) HTMLString() string {
	if p == nil || p.HTML == nil {
		return ""
	}
	return *p.HTML
}

// TextString returns the extracted text or ""
func (p *PageState) TextString() string {
	if p == nil || p.ExtractedText == nil {
		return ""
	}
	return *p.ExtractedText
}

// InteractiveElement is a clickable or fillable element found on the page
type InteractiveElement struct {
	Selector    string            `json:"selector"`
	ElementType string            `json:"element_type"`
	Text        *string           `json:"text,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Decision is the structured intent parsed from oracle output
type Decision struct {
	ActionKind string `json:"action"`
	Value      int    `json:"value"`
	Rationale  string `json:"reason"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
