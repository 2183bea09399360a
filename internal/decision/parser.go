// Package decision turns free-form oracle output into a models.Decision.
//
// The oracle is untrusted. Parse and ParseObject never fail, and ParseSafe
// always returns a decision the agent loop can act on.
package decision

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// UnknownAction is used when the text names no action
	UnknownAction = "unknown"
	// NoReason is used when the text gives no rationale
	NoReason = "No reason provided"
	// FallbackReason explains a substituted fallback decision
	FallbackReason = "fallback: default scroll action"
)

// Action kinds the oracle may choose
const (
	ActionClick      = "click"
	ActionScroll     = "scroll"
	ActionExtract    = "extract"
	ActionNavigate   = "navigate"
	ActionWait       = "wait"
	ActionScreenshot = "screenshot"
)

// allowed is the set of action kinds the agent loop accepts from the oracle
var allowed = map[string]bool{
	ActionClick:      true,
	ActionScroll:     true,
	ActionExtract:    true,
	ActionNavigate:   true,
	ActionWait:       true,
	ActionScreenshot: true,
}

// Fallback returns the decision used whenever oracle output is unusable
func Fallback() models.Decision {
	return models.Decision{ActionKind: ActionScroll, Value: 500, Rationale: FallbackReason}
}

// Parse reads "action: <kind>, value: <int>, reason: <text>" segments in any
// order. A bare integer segment is taken as the value when none was given.
// Segments without a key that follow a reason are treated as part of it.
func Parse(text string) models.Decision {
	var (
		action    string
		value     int
		haveValue bool
		reason    []string
		inReason  bool
	)

	for _, part := range strings.Split(strings.TrimSpace(text), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, rest, hasKey := splitKey(part)
		switch {
		case hasKey && key == "action":
			action = strings.ToLower(strings.TrimSpace(rest))
			inReason = false
		case hasKey && key == "value":
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
				value = n
				haveValue = true
			}
			inReason = false
		case hasKey && key == "reason":
			reason = []string{strings.TrimSpace(rest)}
			inReason = true
		default:
			if n, err := strconv.Atoi(part); err == nil {
				if !haveValue {
					value = n
					haveValue = true
				}
				continue
			}
			if inReason {
				reason = append(reason, part)
			}
		}
	}

	return withDefaults(action, value, strings.Join(reason, ", "))
}

// ParseObject reads the structured form {"action", "value", "reason"} with
// the same defaults as Parse
func ParseObject(obj map[string]interface{}) models.Decision {
	action, _ := obj["action"].(string)
	reason, _ := obj["reason"].(string)

	var value int
	switch v := obj["value"].(type) {
	case float64:
		value = int(v)
	case int:
		value = v
	case int64:
		value = int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			value = int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			value = n
		}
	}

	return withDefaults(strings.ToLower(strings.TrimSpace(action)), value, strings.TrimSpace(reason))
}

// ParseJSON decodes a JSON object and applies ParseObject
func ParseJSON(text string) (models.Decision, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return models.Decision{}, fmt.Errorf("invalid decision JSON: %w", err)
	}
	return ParseObject(obj), nil
}

// ParseAuto picks the JSON form when the text looks like an object and the
// segment form otherwise
func ParseAuto(text string) (models.Decision, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return ParseJSON(trimmed)
	}
	return Parse(trimmed), nil
}

// Validate reports whether kind is an action the agent loop accepts
func Validate(kind string) bool {
	return allowed[strings.ToLower(kind)]
}

// ParseSafe never fails: unparsable text or a kind outside the allow-list
// yields Fallback
func ParseSafe(text string) models.Decision {
	d, err := ParseAuto(text)
	if err != nil {
		log.Debug().Err(err).Msg("Decision parse failed, using fallback")
		return Fallback()
	}
	if !Validate(d.ActionKind) {
		log.Debug().Str("action", d.ActionKind).Msg("Decision action not allowed, using fallback")
		return Fallback()
	}
	return d
}

func splitKey(part string) (key, rest string, ok bool) {
	idx := strings.Index(part, ":")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(part[:idx]))
	switch key {
	case "action", "value", "reason":
		return key, part[idx+1:], true
	}
	return "", "", false
}

func withDefaults(action string, value int, reason string) models.Decision {
	if action == "" {
		action = UnknownAction
	}
	if reason == "" {
		reason = NoReason
	}
	return models.Decision{ActionKind: action, Value: value, Rationale: reason}
}
