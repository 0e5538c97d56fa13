package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/leapstack-labs/cardformula/pkg/formula"
)

// SQLOptions control how a formula is compiled.
type SQLOptions struct {
	// Dialect names the target dialect. Defaults to the engine's target.
	Dialect string
	// Table qualifies column references. Empty leaves them unqualified.
	Table string
	// CastToInteger renders the result as a rounded integer.
	CastToInteger bool
	// InlineAggregates evaluates the collection first and replaces aggregate
	// references with their values.
	InlineAggregates bool
}

// CompileSQL renders the named formula property as a SQL expression.
func (e *Engine) CompileSQL(ctx context.Context, name string, opts SQLOptions) (string, error) {
	def, err := e.property(name)
	if err != nil {
		return "", err
	}
	if !def.IsFormulaic() {
		return "", fmt.Errorf("property %s is not a formula", def.Name())
	}
	if d, bad := e.diagnose(def); bad {
		return "", &InvalidFormulaError{Property: d.Property, Errors: d.Errors}
	}

	d, err := e.resolveDialect(opts.Dialect)
	if err != nil {
		return "", err
	}

	sqlCtx := formula.SQLContext{
		Dialect:       d,
		Table:         opts.Table,
		CastToInteger: opts.CastToInteger,
	}
	if opts.InlineAggregates {
		if _, err := e.evaluate(ctx); err != nil {
			return "", err
		}
		sqlCtx.Overrides = e.aggregateOverrides()
	}
	return def.Formula().SQL(sqlCtx)
}

func (e *Engine) resolveDialect(name string) (*dialect.Dialect, error) {
	if name == "" {
		if e.dialect == nil {
			return nil, &dialect.UnknownDialectError{Name: e.dbConfig.Type, Available: dialect.List()}
		}
		return e.dialect, nil
	}
	d, err := dialect.Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.WithPrecision(e.formatter.Precision), nil
}

// aggregateOverrides maps every aggregate property to its stored value, Null when
// there is none.
func (e *Engine) aggregateOverrides() formula.Overrides {
	overrides := make(formula.Overrides)
	for _, def := range e.collection.Aggregates() {
		v, ok := e.collection.AggregateValue(def)
		if !ok {
			v = formula.Null{}
		}
		overrides[def] = v
	}
	return overrides
}
