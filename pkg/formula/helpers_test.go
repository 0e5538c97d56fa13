package formula

import (
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// testDef is a property definition backed by a map of values on testRecord.
type testDef struct {
	name       string
	column     string
	kind       Kind // KindNull stands for a text property
	formula    bool
	aggregate  bool
	predefined bool
	components []PropertyDefinition
}

func (d *testDef) Name() string       { return d.name }
func (d *testDef) ColumnName() string { return d.column }
func (d *testDef) IsNumeric() bool    { return d.kind == KindNumber }
func (d *testDef) IsDate() bool       { return d.kind == KindDate }
func (d *testDef) IsFormulaic() bool  { return d.formula }
func (d *testDef) IsAggregate() bool  { return d.aggregate }
func (d *testDef) IsPredefined() bool { return d.predefined }

func (d *testDef) ValueOf(rec Record) (any, bool) {
	r, ok := rec.(*testRecord)
	if !ok {
		return nil, false
	}
	v, ok := r.values[strings.ToLower(d.name)]
	return v, ok
}

func (d *testDef) ComponentPropertyDefinitions() []PropertyDefinition { return d.components }

type testSchema map[string]*testDef

func (s testSchema) FindPropertyDefinition(name string) (PropertyDefinition, bool) {
	def, ok := s[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return def, true
}

func (s testSchema) add(def *testDef) *testDef {
	if def.column == "" {
		def.column = strings.ToLower(strings.ReplaceAll(def.name, " ", "_"))
	}
	s[strings.ToLower(def.name)] = def
	return def
}

// newSchema defines Estimate, Spent (numbers), Due (date), Title (text) and
// Created (predefined date).
func newSchema() testSchema {
	s := testSchema{}
	s.add(&testDef{name: "Estimate", kind: KindNumber})
	s.add(&testDef{name: "Spent", kind: KindNumber})
	s.add(&testDef{name: "Due", kind: KindDate})
	s.add(&testDef{name: "Title", kind: KindNull})
	s.add(&testDef{name: "Created", kind: KindDate, predefined: true})
	return s
}

type testRecord struct {
	testSchema
	values map[string]any
}

func newRecord(s testSchema, values map[string]any) *testRecord {
	lower := make(map[string]any, len(values))
	for k, v := range values {
		lower[strings.ToLower(k)] = v
	}
	return &testRecord{testSchema: s, values: lower}
}

type testFormatter struct{}

func (testFormatter) FormatNumber(d decimal.Decimal) string { return "n:" + d.String() }
func (testFormatter) FormatDate(t time.Time) string         { return "d:" + t.Format("2006-01-02") }

// ansi is a dialect with the portable templates.
var ansi = dialect.NewDialect("ansi").Build()

func prop(s PropertySchema, name string) *CardPropertyValue {
	return NewCardPropertyValue(s, name, false)
}

func num(s string) NumericPrimitive {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func day(year int, month time.Month, d int) DatePrimitive {
	return NewDate(year, month, d)
}

// assertPrimitive compares numbers by value and everything else structurally.
func assertPrimitive(t *testing.T, want, got Primitive) {
	t.Helper()
	if w, ok := want.(NumericPrimitive); ok {
		g, ok := got.(NumericPrimitive)
		if assert.True(t, ok, "want number, got %T", got) {
			assert.True(t, w.Decimal().Equal(g.Decimal()), "want %s, got %s", w, g)
		}
		return
	}
	assert.Equal(t, want, got)
}
