package reqctx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestWithRun(t *testing.T) {
	ctx := WithRun(context.Background(), "coupang")
	rc := GetRun(ctx)

	if _, err := uuid.Parse(rc.RunID); err != nil {
		t.Errorf("Expected a uuid run id, got %q", rc.RunID)
	}
	if rc.Site != "coupang" {
		t.Errorf("Expected site coupang, got %q", rc.Site)
	}
	if GetRun(WithRun(context.Background(), "")).RunID == rc.RunID {
		t.Error("Expected distinct run ids")
	}
	if GetRun(context.Background()).RunID != "unknown" {
		t.Error("Expected placeholder run id without a run")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRun(context.Background(), "coupang")

	l := Logger(ctx, zerolog.New(&buf))
	l.Info().Msg("Step")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"`+GetRun(ctx).RunID+`"`) || !strings.Contains(out, `"site":"coupang"`) {
		t.Errorf("Expected run fields in %s", out)
	}
}

func TestNewRunError(t *testing.T) {
	base := errors.New("boom")
	ctx := WithRun(context.Background(), "")

	err := NewRunError(ctx, base)
	if !errors.Is(err, base) {
		t.Error("Expected wrapped error to match")
	}
	if !strings.HasPrefix(err.Error(), "["+GetRun(ctx).RunID+"]") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if NewRunError(ctx, nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
