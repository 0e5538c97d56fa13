package dialect

import (
	"testing"
	"time"

	"github.com/leapstack-labs/cardformula/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		dialect  *Dialect
		input    string
		expected string
	}{
		{"ansi plain", NewDialect("ansi").Build(), "due_date", `"due_date"`},
		{"ansi embedded quote", NewDialect("ansi").Build(), `a"b`, `"a""b"`},
		{
			"brackets",
			NewDialect("tsql").Identifiers("[", "]", "]]", core.NormCaseInsensitive).Build(),
			"a]b",
			"[a]]b]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	d := NewDialect("test").WithReservedWords("order", "table").Build()

	assert.Equal(t, `"order"`, d.QuoteIdentifierIfNeeded("order"))
	assert.Equal(t, `"TABLE"`, d.QuoteIdentifierIfNeeded("TABLE"))
	assert.Equal(t, "estimate", d.QuoteIdentifierIfNeeded("estimate"))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		norm     core.NormalizationStrategy
		expected string
	}{
		{core.NormCaseSensitive, "DueDate"},
		{core.NormUppercase, "DUEDATE"},
		{core.NormLowercase, "duedate"},
		{core.NormCaseInsensitive, "duedate"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			d := NewDialect("test").Identifiers(`"`, `"`, `""`, tt.norm).Build()
			assert.Equal(t, tt.expected, d.NormalizeName("DueDate"))
		})
	}
}

func TestFormatPlaceholder(t *testing.T) {
	q := NewDialect("q").Build()
	dollar := NewDialect("d").PlaceholderStyle(core.PlaceholderDollar).Build()

	assert.Equal(t, "?", q.FormatPlaceholder(1))
	assert.Equal(t, "?", q.FormatPlaceholder(3))
	assert.Equal(t, "$1", dollar.FormatPlaceholder(1))
	assert.Equal(t, "$3", dollar.FormatPlaceholder(3))
}

func TestExpressionTemplates_Defaults(t *testing.T) {
	d := NewDialect("ansi").Build()
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "CAST(1.50 AS NUMERIC)", d.CastNumeric("1.50"))
	assert.Equal(t, "CAST(x AS INTEGER)", d.CastInteger("x"))
	assert.Equal(t, "ROUND(x)", d.Round("x"))
	assert.Equal(t, "DATE '2024-03-09'", d.DateLiteral(day))
	assert.Equal(t, "(d + n)", d.DateAddDays("d", "n"))
	assert.Equal(t, "(d - n)", d.DateSubtractDays("d", "n"))
	assert.Equal(t, "(a - b)", d.DateDiffDays("a", "b"))
	assert.Equal(t, DefaultPrecision, d.Precision())
}

func TestNew_FromConfig(t *testing.T) {
	cfg := &core.DialectConfig{
		Name:        "custom",
		Placeholder: core.PlaceholderDollar,
		Types:       core.ColumnTypes{Numeric: "REAL"},
		Templates: core.ExprTemplates{
			NumericCast:  "CAST(%[1]s AS REAL)",
			DateDiffDays: "date_diff('day', %[2]s, %[1]s)",
		},
		ReservedWords: []string{"select"},
	}

	d := New(cfg).Build()

	assert.Equal(t, "custom", d.GetName())
	assert.Equal(t, "REAL", d.Types.Numeric)
	assert.Equal(t, "DATE", d.Types.Date, "unset column types keep the default")
	assert.Equal(t, "CAST(x AS REAL)", d.CastNumeric("x"))
	assert.Equal(t, "CAST(x AS INTEGER)", d.CastInteger("x"), "unset templates keep the default")
	assert.Equal(t, "date_diff('day', b, a)", d.DateDiffDays("a", "b"))
	assert.True(t, d.IsReservedWord("SELECT"))
	assert.Equal(t, "$2", d.FormatPlaceholder(2))
}

func TestConfigRoundTrip(t *testing.T) {
	d := NewDialect("rt").DefaultSchema("main").WithReservedWords("order").Build()

	cfg := d.Config()

	require.NotNil(t, cfg)
	assert.Equal(t, "rt", cfg.Name)
	assert.Equal(t, "main", cfg.DefaultSchema)
	assert.Equal(t, []string{"ORDER"}, cfg.ReservedWords)
	assert.Equal(t, d.CastNumeric("x"), New(cfg).Build().CastNumeric("x"))
}

func TestWithPrecision(t *testing.T) {
	d := NewDialect("p").Build()

	four := d.WithPrecision(4)

	assert.Equal(t, int32(4), four.Precision())
	assert.Equal(t, DefaultPrecision, d.Precision(), "original dialect is unchanged")
	assert.Equal(t, d.Name, four.Name)
}

func TestRegistry(t *testing.T) {
	d := NewDialect("Registry_Test").Build()
	Register(d)

	got, ok := Get("registry_test")
	require.True(t, ok)
	assert.Same(t, d, got)

	assert.Contains(t, List(), "registry_test")

	_, err := Lookup("registry_test")
	require.NoError(t, err)
}

func TestLookup_Errors(t *testing.T) {
	_, err := Lookup("")
	require.ErrorIs(t, err, ErrDialectRequired)

	_, err = Lookup("no_such_dialect")
	var unknown *UnknownDialectError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_dialect", unknown.Name)
	assert.Contains(t, err.Error(), `unknown dialect "no_such_dialect"`)
}
