// Package core defines the shared language of the cardformula system.
//
// This package contains:
//   - Dialect configuration (DialectConfig, IdentifierConfig, ExprTemplates)
//   - Adapter data types (AdapterConfig, Column, TableMetadata, Rows)
//   - Run history contracts (Store, Run, RunResult)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
