package engine

import (
	"context"
	"errors"

	"github.com/leapstack-labs/cardformula/internal/state"
)

// ErrNoHistory is returned by the history accessors when no state store is configured.
var ErrNoHistory = errors.New("run history is disabled")

// History lists the most recent runs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]*state.Run, error) {
	if e.store == nil {
		return nil, ErrNoHistory
	}
	return e.store.ListRuns(ctx, limit)
}

// LatestRun returns the most recent run of this project, or nil.
func (e *Engine) LatestRun(ctx context.Context) (*state.Run, error) {
	if e.store == nil {
		return nil, ErrNoHistory
	}
	return e.store.GetLatestRun(ctx, e.project)
}

// RunResults returns the mismatches recorded for a verify run.
func (e *Engine) RunResults(ctx context.Context, runID string) ([]*state.RunResult, error) {
	if e.store == nil {
		return nil, ErrNoHistory
	}
	if _, err := e.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return e.store.GetResults(ctx, runID)
}
