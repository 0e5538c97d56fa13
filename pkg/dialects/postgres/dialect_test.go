package postgres

import (
	"testing"
	"time"

	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	require.NotNil(t, Postgres)
	assert.Equal(t, "postgres", Postgres.Name)
	assert.Equal(t, "public", Postgres.DefaultSchema)
	assert.Equal(t, "$1", Postgres.FormatPlaceholder(1))
}

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("postgres")
	require.True(t, ok, "postgres dialect should be registered")
	assert.Same(t, Postgres, d)
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, "CAST(3.00 AS NUMERIC)", Postgres.CastNumeric("3.00"))
	assert.Equal(t, "DATE '2024-02-29'", Postgres.DateLiteral(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "(d + n)", Postgres.DateAddDays("d", "n"))
	assert.Equal(t, "(a - b)", Postgres.DateDiffDays("a", "b"))
}
