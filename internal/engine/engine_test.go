package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/cardformula/internal/loader"
	"github.com/leapstack-labs/cardformula/internal/state"
	"github.com/leapstack-labs/cardformula/internal/testutil"
	"github.com/leapstack-labs/cardformula/pkg/adapter"
	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/formula"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register the in-memory target used by Verify and the dialects compiled against.
	_ "github.com/leapstack-labs/cardformula/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/cardformula/pkg/dialects/postgres"
)

const sprintYAML = `
name: sprint
properties:
  - name: Estimate
    type: number
  - name: Spent
    type: number
  - name: Due
    type: date
  - name: Owner
    type: text
  - name: Remaining
    type: formula
    formula:
      subtract: [Estimate, {property: {name: Spent, null_is_zero: true}}]
  - name: Follow Up
    type: formula
    formula:
      add: [Due, 7]
  - name: Days Left
    type: formula
    formula:
      subtract: [Follow Up, Due]
  - name: Ratio
    type: formula
    formula:
      divide: [Spent, Estimate]
  - name: Total Estimate
    type: aggregate
    target: Estimate
  - name: Share
    type: formula
    formula:
      divide: [Estimate, Total Estimate]
  - name: Bad
    type: formula
    formula:
      multiply: [Due, 2]
cards:
  - number: 1
    values: {Estimate: 8, Spent: 3, Due: 2024-01-30, Owner: ana}
  - number: 2
    values: {Estimate: 4}
  - number: 3
    values: {Estimate: 0, Spent: 2, Due: 2024-02-28, Owner: "o'neil"}
`

const cycleYAML = `
name: loop
properties:
  - name: A
    type: formula
    formula:
      add: [B, 1]
  - name: B
    type: formula
    formula:
      add: [A, 1]
cards:
  - number: 1
`

func newTestEngine(t *testing.T, src string, mutate ...func(*Config)) *Engine {
	t.Helper()
	p, err := loader.Parse([]byte(src))
	require.NoError(t, err)

	cfg := Config{
		Collection:    p.Collection,
		AdapterConfig: &adapter.Config{Type: "sqlite", Path: ":memory:"},
		Workers:       2,
		Logger:        testutil.NewTestLogger(t),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func number(t *testing.T, p formula.Primitive) float64 {
	t.Helper()
	n, ok := p.(formula.NumericPrimitive)
	require.True(t, ok, "expected a number, got %T", p)
	return n.Decimal().InexactFloat64()
}

func date(t *testing.T, p formula.Primitive) string {
	t.Helper()
	d, ok := p.(formula.DatePrimitive)
	require.True(t, ok, "expected a date, got %T", p)
	return d.Time().Format("2006-01-02")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNew_RequiresProject(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNew_LoadsProjectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	require.NoError(t, writeFile(path, sprintYAML))

	e, err := New(Config{ProjectPath: path})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "sprint", e.Project())
	assert.Len(t, e.Collection().Cards(), 3)
	require.NotNil(t, e.GetDialect())
	assert.Equal(t, "sqlite", e.GetDialect().GetName())
	assert.Nil(t, e.GetStateStore())
}

func TestCheck(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	diags := e.Check()
	require.Len(t, diags, 1)
	assert.Equal(t, "Bad", diags[0].Property)
	assert.Equal(t, "(Due * 2)", diags[0].Formula)
	assert.NotEmpty(t, diags[0].Errors)
}

func TestCheck_Cycle(t *testing.T) {
	e := newTestEngine(t, cycleYAML)

	diags := e.Check()
	require.Len(t, diags, 2)
	names := []string{diags[0].Property, diags[1].Property}
	assert.ElementsMatch(t, []string{"A", "B"}, names)
}

func TestCheck_AggregateTarget(t *testing.T) {
	coll := card.NewCollection("c")
	coll.MustDefine(card.PropertySpec{Name: "Owner", Kind: card.KindText})
	coll.MustDefine(card.PropertySpec{Name: "Owners", Kind: card.KindAggregate, Target: "Owner"})

	e, err := New(Config{Collection: coll})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	diags := e.Check()
	require.Len(t, diags, 1)
	assert.Equal(t, "Owners", diags[0].Property)
	assert.Equal(t, []string{"Property Owner is not numeric."}, diags[0].Errors)
}

func TestEvaluate(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	ev, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ev.RunID)
	require.Len(t, ev.Skipped, 1)
	assert.Equal(t, "Bad", ev.Skipped[0].Property)

	require.Len(t, ev.Levels, 2)
	assert.ElementsMatch(t, []string{"Follow Up", "Ratio", "Remaining", "Total Estimate"}, ev.Levels[0])
	assert.ElementsMatch(t, []string{"Days Left", "Share"}, ev.Levels[1])
	assert.Equal(t, 6, ev.Formulas())

	remaining := ev.Values["Remaining"]
	assert.InDelta(t, 5, number(t, remaining[1]), 1e-9)
	assert.InDelta(t, 4, number(t, remaining[2]), 1e-9, "unset Spent counts as zero")
	assert.InDelta(t, -2, number(t, remaining[3]), 1e-9)

	followUp := ev.Values["Follow Up"]
	assert.Equal(t, "2024-02-06", date(t, followUp[1]))
	assert.True(t, formula.IsNull(followUp[2]))
	assert.Equal(t, "2024-03-06", date(t, followUp[3]))

	daysLeft := ev.Values["Days Left"]
	assert.InDelta(t, 7, number(t, daysLeft[1]), 1e-9)
	assert.True(t, formula.IsNull(daysLeft[2]))

	ratio := ev.Values["Ratio"]
	assert.InDelta(t, 0.375, number(t, ratio[1]), 1e-9)
	assert.True(t, formula.IsNull(ratio[2]), "null numerator")
	assert.True(t, formula.IsNull(ratio[3]), "division by zero")

	assert.InDelta(t, 12, number(t, ev.Aggregates["Total Estimate"]), 1e-9)
	share := ev.Values["Share"]
	assert.InDelta(t, 8.0/12, number(t, share[1]), 1e-9)
	assert.InDelta(t, 0, number(t, share[3]), 1e-9)
}

func TestEvaluate_StoresValuesOnCards(t *testing.T) {
	e := newTestEngine(t, sprintYAML)
	_, err := e.Evaluate(context.Background())
	require.NoError(t, err)

	c, ok := e.Collection().Card(1)
	require.True(t, ok)
	v, ok := c.Get("Remaining")
	require.True(t, ok)
	assert.InDelta(t, 5, number(t, v.(formula.Primitive)), 1e-9)

	c2, _ := e.Collection().Card(2)
	_, ok = c2.Get("Follow Up")
	assert.False(t, ok, "null results are not stored")

	_, ok = c.Get("Bad")
	assert.False(t, ok)

	total, ok := e.Collection().Property("Total Estimate")
	require.True(t, ok)
	sum, ok := e.Collection().AggregateValue(total)
	require.True(t, ok)
	assert.InDelta(t, 12, number(t, sum), 1e-9)
}

func TestEvaluate_SkipsCycle(t *testing.T) {
	e := newTestEngine(t, cycleYAML)

	ev, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Len(t, ev.Skipped, 2)
	assert.Empty(t, ev.Levels)
	assert.Zero(t, ev.Formulas())
}

func TestEvaluate_Logs(t *testing.T) {
	logger, buf := testutil.NewCaptureLogger()
	e := newTestEngine(t, sprintYAML, func(c *Config) { c.Logger = logger })

	_, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "evaluation completed")
	assert.Contains(t, buf.String(), "skipping invalid property")
}

func TestEvaluate_Canceled(t *testing.T) {
	e := newTestEngine(t, sprintYAML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileSQL(t *testing.T) {
	e := newTestEngine(t, sprintYAML)
	ctx := context.Background()

	sql, err := e.CompileSQL(ctx, "remaining", SQLOptions{Table: "cards"})
	require.NoError(t, err)
	assert.Contains(t, sql, `CAST("cards"."estimate" AS REAL)`)
	assert.Contains(t, sql, `COALESCE(CAST("cards"."spent" AS REAL), 0)`)

	sql, err = e.CompileSQL(ctx, "Follow Up", SQLOptions{})
	require.NoError(t, err)
	assert.Contains(t, sql, `date("due", (CAST(ROUND(7)`)

	sql, err = e.CompileSQL(ctx, "Ratio", SQLOptions{Dialect: "postgres"})
	require.NoError(t, err)
	assert.Contains(t, sql, "CASE WHEN")
}

func TestCompileSQL_InlineAggregates(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	sql, err := e.CompileSQL(context.Background(), "Share", SQLOptions{InlineAggregates: true})
	require.NoError(t, err)
	assert.Contains(t, sql, "12")
	assert.NotContains(t, sql, "total_estimate")
}

func TestCompileSQL_Errors(t *testing.T) {
	e := newTestEngine(t, sprintYAML)
	ctx := context.Background()

	_, err := e.CompileSQL(ctx, "Nope", SQLOptions{})
	require.ErrorContains(t, err, `property "Nope" does not exist`)

	_, err = e.CompileSQL(ctx, "Estimate", SQLOptions{})
	require.ErrorContains(t, err, "not a formula")

	_, err = e.CompileSQL(ctx, "Bad", SQLOptions{})
	var invalid *InvalidFormulaError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Bad", invalid.Property)

	_, err = e.CompileSQL(ctx, "Remaining", SQLOptions{Dialect: "oracle"})
	require.ErrorContains(t, err, "unknown dialect")
}

func TestDependencies(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	deps, err := e.Dependencies("days left")
	require.NoError(t, err)
	assert.Equal(t, "Days Left", deps.Property)
	assert.Equal(t, []string{"Follow Up", "Due"}, deps.Direct)
	assert.Equal(t, []string{"Follow Up", "Due"}, deps.All)
	assert.Equal(t, []string{"Follow Up", "Days Left"}, deps.Order)
	assert.Empty(t, deps.Dependents)
	assert.Empty(t, deps.Cycle)

	deps, err = e.Dependencies("Share")
	require.NoError(t, err)
	assert.Equal(t, []string{"Estimate", "Total Estimate"}, deps.Direct)
	assert.Equal(t, []string{"Estimate", "Total Estimate"}, deps.All)

	deps, err = e.Dependencies("Total Estimate")
	require.NoError(t, err)
	assert.Equal(t, []string{"Estimate"}, deps.Direct)
	assert.Equal(t, []string{"Estimate"}, deps.All)

	deps, err = e.Dependencies("Estimate")
	require.NoError(t, err)
	assert.Empty(t, deps.Direct)
	assert.Equal(t, []string{"Ratio", "Remaining", "Share", "Total Estimate"}, deps.Dependents)
	assert.Empty(t, deps.Order)
}

func TestDependencies_Cycle(t *testing.T) {
	e := newTestEngine(t, cycleYAML)

	deps, err := e.Dependencies("A")
	require.NoError(t, err)
	assert.NotEmpty(t, deps.Cycle)
	assert.Empty(t, deps.Order)
	assert.ElementsMatch(t, []string{"B", "A"}, deps.All)
}

func TestExecutionLevels(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	levels, err := e.ExecutionLevels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Contains(t, levels[1], "Share")
}

func TestVerify(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	report, err := e.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
	assert.Equal(t, "sqlite", report.Target)
	assert.Equal(t, 3, report.Cards)
	assert.Equal(t, 6, report.Formulas)
	// five formulas over three cards plus one aggregate
	assert.Equal(t, 16, report.Checked)
	require.Len(t, report.Skipped, 1)
}

const nullOperandYAML = `
name: offsets
properties:
  - name: Due
    type: date
  - name: Slack
    type: number
  - name: Spent
    type: number
  - name: Estimate
    type: number
  - name: Shifted
    type: formula
    formula:
      add: [Due, Slack]
  - name: Pulled
    type: formula
    formula:
      subtract: [Due, Slack]
  - name: Credit
    type: formula
    formula:
      negate: Spent
  - name: Cost
    type: formula
    formula:
      multiply: [Spent, Estimate]
cards:
  - number: 1
    values: {Due: 2024-01-30, Slack: 3, Spent: 1.234567, Estimate: 0.00001}
  - number: 2
    values: {Due: 2024-01-30, Estimate: 4}
`

func TestVerify_NullOperands(t *testing.T) {
	e := newTestEngine(t, nullOperandYAML)

	ev, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02", date(t, ev.Values["Shifted"][1]))
	assert.Equal(t, "2024-01-27", date(t, ev.Values["Pulled"][1]))
	for _, name := range []string{"Shifted", "Pulled", "Credit", "Cost"} {
		assert.True(t, formula.IsNull(ev.Values[name][2]), "%s of card 2 should be null", name)
	}

	report, err := e.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
	assert.Equal(t, 8, report.Checked)
}

func TestMatches(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	assert.False(t, e.matches(formula.NumberFromInt(5), 5.1))
	assert.True(t, e.matches(formula.NumberFromInt(5), 5.0000000001))
	assert.True(t, e.matches(formula.NumberFromInt(5), []byte("5.000")))
	assert.True(t, e.matches(formula.NewDate(2024, 2, 6), "2024-02-06"))
	assert.True(t, e.matches(formula.NewDate(2024, 2, 6), "2024-02-06 00:00:00"))
	assert.False(t, e.matches(formula.NewDate(2024, 2, 6), "2024-02-07"))
	assert.True(t, e.matches(formula.Null{}, nil))
	assert.False(t, e.matches(formula.Null{}, 0.0))
	assert.False(t, e.matches(formula.NumberFromInt(0), nil))
}

func TestVerify_History(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")
	e := newTestEngine(t, sprintYAML, func(c *Config) { c.StatePath = statePath })
	ctx := context.Background()

	ev, err := e.Evaluate(ctx)
	require.NoError(t, err)
	report, err := e.Verify(ctx)
	require.NoError(t, err)

	runs, err := e.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, state.RunKindVerify, runs[0].Kind)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 6, runs[0].Stats.Formulas)
	assert.Equal(t, 3, runs[0].Stats.Cards)
	assert.Equal(t, ev.RunID, runs[1].ID)
	assert.Equal(t, state.RunKindEvaluate, runs[1].Kind)

	latest, err := e.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.RunID, latest.ID)

	results, err := e.RunResults(ctx, report.RunID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHistory_Disabled(t *testing.T) {
	e := newTestEngine(t, sprintYAML)

	_, err := e.History(context.Background(), 5)
	require.ErrorIs(t, err, ErrNoHistory)
	_, err = e.RunResults(context.Background(), "x")
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestFormatActual(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{[]byte("abc"), "abc"},
		{int64(3), "3"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatActual(tt.in))
	}
}

func TestWithinTolerance(t *testing.T) {
	tol := DefaultTolerance
	assert.True(t, withinTolerance(dec("1000000"), dec("1000000.5"), tol))
	assert.False(t, withinTolerance(dec("1000000"), dec("1000002"), tol))
	assert.True(t, withinTolerance(dec("0"), dec("0.0000001"), tol))
	assert.False(t, withinTolerance(dec("0"), dec("0.01"), tol))
}
