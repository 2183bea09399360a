package agent

import (
	"time"

	"github.com/law-makers/dealcrawl/internal/decision"
	"github.com/law-makers/dealcrawl/pkg/models"
)

const (
	clickSelector       = "a, button"
	defaultScrollAmount = 500
	// DefaultWait is used when a wait decision carries no duration
	DefaultWait = 2 * time.Second
)

// MapDecision turns a parsed decision into the action to execute.
// productLinks are the product links found on the current page; navigate
// picks the value-th one (1-based) and degrades to GetState when there is
// none. Unknown kinds also map to GetState.
func MapDecision(d models.Decision, productLinks []string) models.BrowserAction {
	switch d.ActionKind {
	case decision.ActionClick:
		return models.Click{Selector: clickSelector}
	case decision.ActionScroll:
		return models.Scroll{Direction: models.ScrollDown, Amount: defaultScrollAmount}
	case decision.ActionExtract:
		return models.ExtractText{}
	case decision.ActionNavigate:
		if len(productLinks) == 0 {
			return models.GetState{}
		}
		i := d.Value - 1
		if i < 0 {
			i = 0
		}
		if i >= len(productLinks) {
			i = len(productLinks) - 1
		}
		return models.Navigate{Address: productLinks[i]}
	case decision.ActionScreenshot:
		return models.Screenshot{}
	case decision.ActionWait:
		wait := DefaultWait
		if d.Value > 0 {
			wait = time.Duration(d.Value) * time.Millisecond
		}
		return models.WaitForElement{Selector: "body", Timeout: wait}
	}
	return models.GetState{}
}
