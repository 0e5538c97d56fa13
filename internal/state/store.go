// Package state keeps the run history of cardformula in a SQLite database.
// The schema is managed with goose migrations embedded in the binary.
//
// Core types are defined in pkg/core. This package re-exports them via type
// aliases so callers only need one import.
package state

import (
	"github.com/leapstack-labs/cardformula/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunKind is an alias for core.RunKind.
	RunKind = core.RunKind

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// RunStats is an alias for core.RunStats.
	RunStats = core.RunStats

	// Run is an alias for core.Run.
	Run = core.Run

	// RunResult is an alias for core.RunResult.
	RunResult = core.RunResult
)

// Run constants re-exported from core.
const (
	RunKindEvaluate = core.RunKindEvaluate
	RunKindVerify   = core.RunKindVerify

	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)
