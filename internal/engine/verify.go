package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/cardformula/internal/state"
	"github.com/leapstack-labs/cardformula/pkg/adapter"
	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/leapstack-labs/cardformula/pkg/formula"
)

// CardColumn holds the card number in the verification table.
const CardColumn = "_card"

// Mismatch is a value the database computed differently from the engine.
type Mismatch struct {
	Property string `json:"property"`
	// Card is zero for aggregates.
	Card     int    `json:"card,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	RunID  string
	Target string
	// Checked counts the compared values.
	Checked    int
	Formulas   int
	Cards      int
	Mismatches []Mismatch
	Skipped    []Diagnostic
	Duration   time.Duration
}

// OK reports whether the database agreed on every value.
func (r *VerifyReport) OK() bool { return len(r.Mismatches) == 0 }

// verifyColumn is a property stored in the verification table.
type verifyColumn struct {
	def  *card.PropertyDefinition
	name string
	typ  string
}

// Verify evaluates the collection in memory, loads the cards into the target
// database and checks that the compiled SQL of every formula and aggregate
// produces the same values. Formula columns are materialized level by level so
// later formulas read database-computed inputs.
func (e *Engine) Verify(ctx context.Context) (*VerifyReport, error) {
	run, err := e.startRun(ctx, state.RunKindVerify, e.dbConfig.Type)
	if err != nil {
		return nil, err
	}

	report, err := e.verify(ctx)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, err
	}
	report.RunID = run.ID

	if e.store != nil && len(report.Mismatches) > 0 {
		results := make([]*state.RunResult, 0, len(report.Mismatches))
		for _, m := range report.Mismatches {
			results = append(results, &state.RunResult{
				RunID:      run.ID,
				Property:   m.Property,
				CardNumber: m.Card,
				Expected:   m.Expected,
				Actual:     m.Actual,
			})
		}
		if err := e.store.RecordResults(ctx, run.ID, results); err != nil {
			e.logger.Warn("failed to record results", "run_id", run.ID, "error", err)
		}
	}

	status := state.RunStatusCompleted
	errMsg := ""
	if !report.OK() {
		status = state.RunStatusFailed
		errMsg = fmt.Sprintf("%d mismatches", len(report.Mismatches))
	}
	e.completeRun(ctx, run, status, state.RunStats{
		Formulas:   report.Formulas,
		Cards:      report.Cards,
		Mismatches: len(report.Mismatches),
	}, errMsg)

	e.logger.Info("verification completed",
		"run_id", report.RunID,
		"target", report.Target,
		"checked", report.Checked,
		"mismatches", len(report.Mismatches),
		"duration", report.Duration)
	return report, nil
}

func (e *Engine) verify(ctx context.Context) (*VerifyReport, error) {
	start := time.Now()

	ev, err := e.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	d := e.dialect

	cards := e.collection.Cards()
	report := &VerifyReport{
		Target:   d.GetName(),
		Formulas: ev.Formulas(),
		Cards:    len(cards),
		Skipped:  ev.Skipped,
	}

	columns, err := e.verifyColumns(d)
	if err != nil {
		return nil, err
	}
	if err := e.createTable(ctx, d, columns); err != nil {
		return nil, err
	}
	if err := e.insertCards(ctx, d, columns, cards); err != nil {
		return nil, err
	}

	// skipped aggregates read as NULL in dependent formulas
	overrides := make(formula.Overrides)
	for _, def := range e.collection.Aggregates() {
		if _, ok := ev.Aggregates[def.Name()]; !ok {
			overrides[def] = formula.Null{}
		}
	}

	for _, level := range ev.Levels {
		for _, name := range level {
			def, err := e.property(name)
			if err != nil {
				return nil, err
			}
			if def.IsAggregate() {
				expected := ev.Aggregates[def.Name()]
				if err := e.verifyAggregate(ctx, d, def, expected, report); err != nil {
					return nil, err
				}
				overrides[def] = expected
				continue
			}
			if err := e.verifyFormula(ctx, d, def, ev.Values[def.Name()], overrides, report); err != nil {
				return nil, err
			}
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// verifyColumns lists the table columns: every plain property and every valid
// formula. Aggregates live outside the table.
func (e *Engine) verifyColumns(d *dialect.Dialect) ([]verifyColumn, error) {
	var columns []verifyColumn
	seen := map[string]string{strings.ToLower(CardColumn): CardColumn}
	for _, def := range e.collection.Properties() {
		if def.IsAggregate() || (def.IsFormulaic() && !e.valid(def)) {
			continue
		}
		name := def.ColumnName()
		if other, ok := seen[strings.ToLower(name)]; ok {
			return nil, fmt.Errorf("property %s: column %q is already used by %s", def.Name(), name, other)
		}
		seen[strings.ToLower(name)] = def.Name()
		columns = append(columns, verifyColumn{def: def, name: name, typ: columnType(d, def)})
	}
	return columns, nil
}

func columnType(d *dialect.Dialect, def *card.PropertyDefinition) string {
	switch {
	case def.IsDate():
		return d.Types.Date
	case def.Kind() == card.KindText:
		return d.Types.Text
	default:
		return d.Types.Numeric
	}
}

func (e *Engine) createTable(ctx context.Context, d *dialect.Dialect, columns []verifyColumn) error {
	table := d.QuoteIdentifier(e.table)
	if err := e.db.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", e.table, err)
	}

	defs := []string{d.QuoteIdentifier(CardColumn) + " " + d.Types.Integer + " PRIMARY KEY"}
	for _, c := range columns {
		defs = append(defs, d.QuoteIdentifier(c.name)+" "+c.typ)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	e.logger.Debug("creating table", "sql", stmt)
	if err := e.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", e.table, err)
	}

	meta, err := e.db.GetTableMetadata(ctx, e.table)
	if err != nil {
		return fmt.Errorf("failed to read table %s: %w", e.table, err)
	}
	want := []string{CardColumn}
	for _, c := range columns {
		want = append(want, c.name)
	}
	if missing := adapter.MissingColumns(meta, want); len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", e.table, strings.Join(missing, ", "))
	}
	return nil
}

// insertCards loads the plain values. Formula columns start out NULL. Dates are
// inlined as dialect literals; everything else is bound as a parameter.
func (e *Engine) insertCards(ctx context.Context, d *dialect.Dialect, columns []verifyColumn, cards []*card.Card) error {
	for _, c := range cards {
		names := []string{d.QuoteIdentifier(CardColumn)}
		values := []string{d.FormatPlaceholder(1)}
		args := []any{c.Number}

		for _, col := range columns {
			if col.def.IsFormulaic() {
				continue
			}
			raw, ok := c.Value(col.def)
			if !ok || raw == nil {
				continue
			}
			names = append(names, d.QuoteIdentifier(col.name))
			switch col.def.Kind() {
			case card.KindNumber:
				v, err := formula.ToPrimitive(raw, formula.KindNumber)
				if err != nil {
					return fmt.Errorf("card #%d, %s: %w", c.Number, col.def.Name(), err)
				}
				n, ok := v.(formula.NumericPrimitive)
				if !ok {
					values = append(values, "NULL")
					continue
				}
				args = append(args, n.Decimal().InexactFloat64())
				values = append(values, d.FormatPlaceholder(len(args)))
			case card.KindDate:
				v, err := formula.ToPrimitive(raw, formula.KindDate)
				if err != nil {
					return fmt.Errorf("card #%d, %s: %w", c.Number, col.def.Name(), err)
				}
				dt, ok := v.(formula.DatePrimitive)
				if !ok {
					values = append(values, "NULL")
					continue
				}
				values = append(values, d.DateLiteral(dt.Time()))
			default:
				args = append(args, fmt.Sprint(raw))
				values = append(values, d.FormatPlaceholder(len(args)))
			}
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdentifier(e.table), strings.Join(names, ", "), strings.Join(values, ", "))
		if err := e.db.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert card #%d: %w", c.Number, err)
		}
	}
	return nil
}

func (e *Engine) verifyAggregate(ctx context.Context, d *dialect.Dialect, def *card.PropertyDefinition, expected formula.Primitive, report *VerifyReport) error {
	target, err := e.property(def.Target())
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("SELECT SUM(%s) FROM %s",
		d.QuoteIdentifier(target.ColumnName()), d.QuoteIdentifier(e.table))
	e.logger.Debug("verifying aggregate", "property", def.Name(), "sql", stmt)

	rows, err := e.db.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", def.Name(), err)
	}
	defer func() { _ = rows.Close() }()

	var actual any
	if rows.Next() {
		if err := rows.Scan(&actual); err != nil {
			return fmt.Errorf("aggregate %s: %w", def.Name(), err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("aggregate %s: %w", def.Name(), err)
	}

	report.Checked++
	if !e.matches(expected, actual) {
		report.Mismatches = append(report.Mismatches, e.mismatch(def, 0, expected, actual))
	}
	return nil
}

func (e *Engine) verifyFormula(ctx context.Context, d *dialect.Dialect, def *card.PropertyDefinition, expected map[int]formula.Primitive, overrides formula.Overrides, report *VerifyReport) error {
	fragment, err := def.Formula().SQL(formula.SQLContext{
		Dialect:   d,
		Table:     e.table,
		Overrides: overrides,
	})
	if err != nil {
		return fmt.Errorf("formula %s: %w", def.Name(), err)
	}

	table := d.QuoteIdentifier(e.table)
	stmt := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		d.QuoteIdentifier(CardColumn), fragment, table, d.QuoteIdentifier(CardColumn))
	e.logger.Debug("verifying formula", "property", def.Name(), "sql", stmt)

	rows, err := e.db.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("formula %s: %w", def.Name(), err)
	}
	seen := make(map[int]bool, len(expected))
	for rows.Next() {
		var number int
		var actual any
		if err := rows.Scan(&number, &actual); err != nil {
			_ = rows.Close()
			return fmt.Errorf("formula %s: %w", def.Name(), err)
		}
		seen[number] = true
		report.Checked++

		want, ok := expected[number]
		if !ok {
			want = formula.Null{}
		}
		if !e.matches(want, actual) {
			report.Mismatches = append(report.Mismatches, e.mismatch(def, number, want, actual))
		}
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return fmt.Errorf("formula %s: %w", def.Name(), err)
	}
	for number, want := range expected {
		if !seen[number] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Property: def.Name(),
				Card:     number,
				Expected: e.formatExpected(want),
				Actual:   "(missing row)",
			})
		}
	}

	update := fmt.Sprintf("UPDATE %s SET %s = %s",
		table, d.QuoteIdentifier(def.ColumnName()), fragment)
	if err := e.db.Exec(ctx, update); err != nil {
		return fmt.Errorf("failed to materialize %s: %w", def.Name(), err)
	}
	return nil
}

func (e *Engine) mismatch(def *card.PropertyDefinition, number int, expected formula.Primitive, actual any) Mismatch {
	return Mismatch{
		Property: def.Name(),
		Card:     number,
		Expected: e.formatExpected(expected),
		Actual:   formatActual(actual),
	}
}
