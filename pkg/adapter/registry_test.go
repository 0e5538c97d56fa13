package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter records Connect and Close calls.
type stubAdapter struct {
	connectErr error
	closed     bool
}

func (s *stubAdapter) Connect(context.Context, Config) error      { return s.connectErr }
func (s *stubAdapter) Exec(context.Context, string, ...any) error { return nil }
func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}
func (s *stubAdapter) Query(context.Context, string, ...any) (*Rows, error) {
	return nil, nil
}
func (s *stubAdapter) GetTableMetadata(context.Context, string) (*Metadata, error) {
	return nil, nil
}
func (s *stubAdapter) Dialect() *dialect.Dialect { return nil }

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	assert.Equal(t,
		`unknown adapter type "fake_db" (available: duckdb, postgres); check target.type in cardformula.yaml`,
		err.Error())
}

func TestRegister_Aliases(t *testing.T) {
	Register("Stub_Reg", func(_ *slog.Logger) Adapter { return &stubAdapter{} }, "stub-alias")

	tests := []struct {
		name      string
		canonical string
		ok        bool
	}{
		{"stub_reg", "stub_reg", true},
		{"STUB_REG", "stub_reg", true},
		{" stub-alias ", "stub_reg", true},
		{"Stub-Alias", "stub_reg", true},
		{"stub", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.canonical, got)
			assert.Equal(t, tt.ok, IsRegistered(tt.name))
		})
	}

	assert.Contains(t, ListAdapters(), "stub_reg")
	assert.NotContains(t, ListAdapters(), "stub-alias", "aliases are not listed")

	factory, ok := Lookup("stub-alias")
	require.True(t, ok)
	assert.NotNil(t, factory(nil))
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestOpen(t *testing.T) {
	ok := &stubAdapter{}
	failing := &stubAdapter{connectErr: errors.New("refused")}
	Register("stub_open_ok", func(_ *slog.Logger) Adapter { return ok })
	Register("stub_open_fail", func(_ *slog.Logger) Adapter { return failing })

	db, err := Open(context.Background(), Config{Type: "stub_open_ok"}, nil)
	require.NoError(t, err)
	assert.Same(t, ok, db)
	assert.False(t, ok.closed)

	_, err = Open(context.Background(), Config{Type: "stub_open_fail"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to stub_open_fail: refused")
	assert.True(t, failing.closed, "adapter is closed when connect fails")

	_, err = Open(context.Background(), Config{Type: "nope"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
}
