package decision

import (
	"testing"

	"github.com/law-makers/dealcrawl/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.Decision
	}{
		{
			name: "full triple",
			in:   "action: click, value: 1, reason: product link",
			want: models.Decision{ActionKind: "click", Value: 1, Rationale: "product link"},
		},
		{
			name: "order independent",
			in:   "reason: load more items, value: 500, action: scroll",
			want: models.Decision{ActionKind: "scroll", Value: 500, Rationale: "load more items"},
		},
		{
			name: "bare integer as value",
			in:   "action: click, 3, reason: third card",
			want: models.Decision{ActionKind: "click", Value: 3, Rationale: "third card"},
		},
		{
			name: "explicit value wins over bare integer",
			in:   "value: 2, 7, action: click",
			want: models.Decision{ActionKind: "click", Value: 2, Rationale: NoReason},
		},
		{
			name: "defaults",
			in:   "",
			want: models.Decision{ActionKind: UnknownAction, Value: 0, Rationale: NoReason},
		},
		{
			name: "unparsable value defaults to zero",
			in:   "action: scroll, value: lots",
			want: models.Decision{ActionKind: "scroll", Value: 0, Rationale: NoReason},
		},
		{
			name: "reason with commas",
			in:   "action: extract, value: 0, reason: price, discount and coupon visible",
			want: models.Decision{ActionKind: "extract", Value: 0, Rationale: "price, discount and coupon visible"},
		},
		{
			name: "keys are case insensitive",
			in:   "Action: CLICK, Value: 4",
			want: models.Decision{ActionKind: "click", Value: 4, Rationale: NoReason},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.in); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	got := ParseObject(map[string]interface{}{"action": "Navigate", "value": float64(2), "reason": "next page"})
	want := models.Decision{ActionKind: "navigate", Value: 2, Rationale: "next page"}
	if got != want {
		t.Errorf("ParseObject = %+v, want %+v", got, want)
	}

	got = ParseObject(map[string]interface{}{})
	want = models.Decision{ActionKind: UnknownAction, Value: 0, Rationale: NoReason}
	if got != want {
		t.Errorf("ParseObject(empty) = %+v, want %+v", got, want)
	}
}

func TestParseAuto_JSON(t *testing.T) {
	got, err := ParseAuto(`{"action": "screenshot", "value": 0, "reason": "capture deal banner"}`)
	if err != nil {
		t.Fatalf("ParseAuto failed: %v", err)
	}
	if got.ActionKind != "screenshot" || got.Rationale != "capture deal banner" {
		t.Errorf("Unexpected decision: %+v", got)
	}

	if _, err := ParseAuto(`{"action": `); err != nil {
		// not an object form because it does not end with }
		t.Errorf("Expected segment parsing for unterminated JSON, got %v", err)
	}
	if _, err := ParseAuto(`{"action": click}`); err == nil {
		t.Error("Expected error for malformed JSON object")
	}
}

func TestValidate(t *testing.T) {
	for _, kind := range []string{"click", "scroll", "extract", "navigate", "wait", "screenshot"} {
		if !Validate(kind) {
			t.Errorf("Expected %q to be valid", kind)
		}
	}
	for _, kind := range []string{"unknown", "", "fill", "execute_script", "get_state"} {
		if Validate(kind) {
			t.Errorf("Expected %q to be invalid", kind)
		}
	}
}

func TestParseSafe(t *testing.T) {
	got := ParseSafe("action: click, value: 1, reason: product link")
	want := models.Decision{ActionKind: "click", Value: 1, Rationale: "product link"}
	if got != want {
		t.Errorf("ParseSafe = %+v, want %+v", got, want)
	}

	for _, in := range []string{"garbage text", "", "action: dance, value: 9", `{"action": 12}`, `{broken}`} {
		if got := ParseSafe(in); got != Fallback() {
			t.Errorf("ParseSafe(%q) = %+v, want fallback", in, got)
		}
	}

	fb := Fallback()
	if fb.ActionKind != "scroll" || fb.Value != 500 || fb.Rationale != FallbackReason {
		t.Errorf("Unexpected fallback: %+v", fb)
	}
}
