package core

import (
	"context"
	"time"
)

// Store records the history of evaluation and verification runs.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(ctx context.Context, kind RunKind, project, target string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, stats RunStats, errMsg string) error
	GetLatestRun(ctx context.Context, project string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Result operations
	RecordResults(ctx context.Context, runID string, results []*RunResult) error
	GetResults(ctx context.Context, runID string) ([]*RunResult, error)
}

// RunKind is what a run did.
type RunKind string

// Run kinds.
const (
	RunKindEvaluate RunKind = "evaluate"
	RunKindVerify   RunKind = "verify"
)

// RunStatus represents the status of a run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStats summarizes a finished run.
type RunStats struct {
	Formulas   int
	Cards      int
	Mismatches int
}

// Run is one evaluation or verification of a project.
type Run struct {
	ID          string
	Kind        RunKind
	Project     string
	Target      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Stats       RunStats
	Error       string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunResult is the outcome of one formula on one card. Verification runs record
// mismatches; the values are display strings.
type RunResult struct {
	RunID      string
	Property   string
	CardNumber int
	Expected   string
	Actual     string
	Match      bool
}
