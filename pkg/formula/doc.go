// Package formula implements typed arithmetic expressions over card properties.
//
// An expression tree is built from primitives (NumericPrimitive, DatePrimitive, Null),
// CardPropertyValue leaves and operator nodes (Addition, Subtraction, Multiplication,
// Division, Negation). A tree can be used three ways:
//
//   - bound to a single Record and evaluated in memory (Evaluate, Bind + Value)
//   - compiled into a SQL fragment for bulk queries (SQL with a SQLContext)
//   - walked by a Visitor for validation and dependency analysis
//
// Every node reports a static output type (Number, Date or NullType). The in-memory
// and SQL backends follow the same type rules so that a formula computed for one
// card agrees with the same formula computed across a table.
//
// Trees are not safe for concurrent use once bound: binding stores per-record state in
// the CardPropertyValue leaves. Build one tree per goroutine, or bind and evaluate
// under external synchronization.
package formula
