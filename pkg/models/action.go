package models

import (
	"fmt"
	"time"
)

// ActionKind names a BrowserAction variant
type ActionKind string

const (
	KindNavigate       ActionKind = "navigate"
	KindClick          ActionKind = "click"
	KindScroll         ActionKind = "scroll"
	KindExtractText    ActionKind = "extract_text"
	KindScreenshot     ActionKind = "screenshot"
	KindWaitForElement ActionKind = "wait_for_element"
	KindFillField      ActionKind = "fill_field"
	KindExecuteScript  ActionKind = "execute_script"
	KindGetState       ActionKind = "get_state"
)

// ScrollDirection is the direction of a Scroll action
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// BrowserAction is a closed set of browser operations. The only
// implementations are the variant types declared in this file.
type BrowserAction interface {
	Kind() ActionKind
	isBrowserAction()
}

// Navigate loads Address in the current tab
type Navigate struct {
	Address string
}

// Click clicks the first element matching Selector
type Click struct {
	Selector string
}

// Scroll scrolls the viewport. An Amount <= 0 scrolls one viewport.
type Scroll struct {
	Direction ScrollDirection
	Amount    int
}

// ExtractText reads the text of Selector, or of the whole document when
// Selector is empty
type ExtractText struct {
	Selector string
}

// Screenshot captures the visible page as PNG
type Screenshot struct{}

// WaitForElement blocks until Selector is visible or Timeout elapses
type WaitForElement struct {
	Selector string
	Timeout  time.Duration
}

// FillField types Value into the element matching Selector
type FillField struct {
	Selector string
	Value    string
}

// ExecuteScript evaluates Script in the page
type ExecuteScript struct {
	Script string
}

// GetState reads the current page without changing it
type GetState struct{}

func (Navigate) Kind() ActionKind       { return KindNavigate }
func (Click) Kind() ActionKind          { return KindClick }
func (Scroll) Kind() ActionKind         { return KindScroll }
func (ExtractText) Kind() ActionKind    { return KindExtractText }
func (Screenshot) Kind() ActionKind     { return KindScreenshot }
func (WaitForElement) Kind() ActionKind { return KindWaitForElement }
func (FillField) Kind() ActionKind      { return KindFillField }
func (ExecuteScript) Kind() ActionKind  { return KindExecuteScript }
func (GetState) Kind() ActionKind       { return KindGetState }

func (Navigate) isBrowserAction()       {}
func (Click) isBrowserAction()          {}
func (Scroll) isBrowserAction()         {}
func (ExtractText) isBrowserAction()    {}
func (Screenshot) isBrowserAction()     {}
func (WaitForElement) isBrowserAction() {}
func (FillField) isBrowserAction()      {}
func (ExecuteScript) isBrowserAction()  {}
func (GetState) isBrowserAction()       {}

// MutatesPage reports whether the action changes the page and therefore
// needs a settle delay afterwards
func MutatesPage(a BrowserAction) bool {
	switch a.(type) {
	case Click, Scroll, FillField:
		return true
	}
	return false
}

// ValidateAction checks that the variant carries the payload it needs
func ValidateAction(a BrowserAction) error {
	switch v := a.(type) {
	case nil:
		return fmt.Errorf("action is nil")
	case Navigate:
		if v.Address == "" {
			return fmt.Errorf("navigate: address is required")
		}
	case Click:
		if v.Selector == "" {
			return fmt.Errorf("click: selector is required")
		}
	case Scroll:
		switch v.Direction {
		case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		default:
			return fmt.Errorf("scroll: invalid direction %q", v.Direction)
		}
	case WaitForElement:
		if v.Selector == "" {
			return fmt.Errorf("wait_for_element: selector is required")
		}
	case FillField:
		if v.Selector == "" {
			return fmt.Errorf("fill_field: selector is required")
		}
	case ExecuteScript:
		if v.Script == "" {
			return fmt.Errorf("execute_script: script is required")
		}
	case ExtractText, Screenshot, GetState:
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
	return nil
}

// DescribeAction renders an action for logs
func DescribeAction(a BrowserAction) string {
	switch v := a.(type) {
	case Navigate:
		return fmt.Sprintf("navigate(%s)", v.Address)
	case Click:
		return fmt.Sprintf("click(%s)", v.Selector)
	case Scroll:
		return fmt.Sprintf("scroll(%s,%d)", v.Direction, v.Amount)
	case ExtractText:
		if v.Selector == "" {
			return "extract_text(document)"
		}
		return fmt.Sprintf("extract_text(%s)", v.Selector)
	case WaitForElement:
		return fmt.Sprintf("wait_for_element(%s,%s)", v.Selector, v.Timeout)
	case FillField:
		return fmt.Sprintf("fill_field(%s)", v.Selector)
	case ExecuteScript:
		return "execute_script"
	case nil:
		return "<nil>"
	default:
		return string(a.Kind())
	}
}
