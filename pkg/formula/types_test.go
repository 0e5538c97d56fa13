package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Predicates(t *testing.T) {
	tests := []struct {
		typ     Type
		name    string
		numeric bool
		date    bool
		null    bool
	}{
		{NumberType{}, "Number", true, false, false},
		{DateType{}, "Date", false, true, false},
		{NullType{}, "Null", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.Name())
			assert.Equal(t, tt.numeric, tt.typ.IsNumeric())
			assert.Equal(t, tt.date, tt.typ.IsDate())
			assert.Equal(t, tt.null, tt.typ.IsNull())
		})
	}

	assert.True(t, SameType(NumberType{}, NumberType{}))
	assert.False(t, SameType(NumberType{}, DateType{}))
}

func TestType_ValidOperationsAgainst(t *testing.T) {
	all := []Operation{OpAddition, OpSubtraction, OpMultiplication, OpDivision}

	tests := []struct {
		name        string
		left, right Type
		want        []Operation
	}{
		{"number number", NumberType{}, NumberType{}, all},
		{"number date", NumberType{}, DateType{}, []Operation{OpAddition, OpSubtraction}},
		{"number null", NumberType{}, NullType{}, nil},
		{"date date", DateType{}, DateType{}, []Operation{OpSubtraction}},
		{"date number", DateType{}, NumberType{}, []Operation{OpAddition}},
		{"date null", DateType{}, NullType{}, nil},
		{"null number", NullType{}, NumberType{}, all},
		{"null date", NullType{}, DateType{}, all},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.left.ValidOperationsAgainst(tt.right))
		})
	}
}

func TestType_ToOutputFormat(t *testing.T) {
	f := testFormatter{}

	assert.Equal(t, "n:1.5", NumberType{}.ToOutputFormat(num("1.5"), f))
	assert.Equal(t, "", NumberType{}.ToOutputFormat(Null{}, f))
	assert.Equal(t, "d:2024-01-31", DateType{}.ToOutputFormat(day(2024, 1, 31), f))
	assert.Equal(t, "", DateType{}.ToOutputFormat(Null{}, f))
	assert.Equal(t, "", NullType{}.ToOutputFormat(num("1"), f))
}

func TestNullType_SQL(t *testing.T) {
	ctx := SQLContext{Dialect: ansi}
	a, b := num("1"), num("2")

	for _, render := range []func() (string, error){
		func() (string, error) { return NullType{}.AdditionSQL(ctx, a, b) },
		func() (string, error) { return NullType{}.SubtractionSQL(ctx, a, b) },
		func() (string, error) { return NullType{}.MultiplicationSQL(ctx, a, b) },
		func() (string, error) { return NullType{}.DivisionSQL(ctx, a, b) },
		func() (string, error) { return NullType{}.NegationSQL(ctx, a) },
	} {
		sql, err := render()
		require.NoError(t, err)
		assert.Equal(t, "NULL", sql)
	}
}

func TestDateType_UnsupportedSQL(t *testing.T) {
	ctx := SQLContext{Dialect: ansi}
	d := day(2024, 1, 1)

	_, err := DateType{}.MultiplicationSQL(ctx, d, d)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = DateType{}.DivisionSQL(ctx, d, d)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = DateType{}.NegationSQL(ctx, d)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}
