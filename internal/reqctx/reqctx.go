// Package reqctx carries the agent run identity through a context
package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type key int

const runKey key = 0

// RunContext identifies one agent loop run
type RunContext struct {
	RunID     string
	Site      string
	StartTime time.Time
}

// WithRun attaches a new run identity to ctx
func WithRun(ctx context.Context, site string) context.Context {
	return context.WithValue(ctx, runKey, &RunContext{
		RunID:     uuid.NewString(),
		Site:      site,
		StartTime: time.Now(),
	})
}

// GetRun returns the run attached to ctx, or a placeholder with id "unknown"
func GetRun(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runKey).(*RunContext); ok {
		return rc
	}
	return &RunContext{
		RunID:     "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns a zerolog logger tagged with the run id and site
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	rc := GetRun(ctx)
	lc := base.With().Str("run_id", rc.RunID)
	if rc.Site != "" {
		lc = lc.Str("site", rc.Site)
	}
	return lc.Logger()
}

// RunError wraps an error with the run it happened in
type RunError struct {
	RunID string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps err with the run id from ctx
func NewRunError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{
		RunID: GetRun(ctx).RunID,
		Err:   err,
	}
}
