package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/core"
	"github.com/leapstack-labs/cardformula/pkg/dialect"
)

// ErrNotConnected is returned when a statement is run before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	b.logger().Debug("exec", slog.String("sql", sqlStr), slog.Int("args", len(args)))
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	b.logger().Debug("query", slog.String("sql", sqlStr), slog.Int("args", len(args)))
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ParseQualifiedName splits "schema.table" into its parts.
// A bare table name lands in the dialect's default schema.
func ParseQualifiedName(table string, d *dialect.Dialect) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok {
		return s, n
	}
	return d.DefaultSchema, table
}

const informationSchemaColumns = `SELECT column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s
ORDER BY ordinal_position`

// InformationSchemaMetadata reads a table's columns from information_schema,
// which postgres and duckdb both provide.
func (b *BaseSQLAdapter) InformationSchemaMetadata(ctx context.Context, table string, d *dialect.Dialect) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	schema, name := ParseQualifiedName(table, d)
	query := fmt.Sprintf(informationSchemaColumns, d.FormatPlaceholder(1), d.FormatPlaceholder(2))
	b.logger().Debug("reading table metadata", slog.String("schema", schema), slog.String("table", name))

	rows, err := b.DB.QueryContext(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := &core.TableMetadata{Schema: schema, Name: name}
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	meta.RowCount = b.CountRows(ctx, d.QuoteIdentifier(schema)+"."+d.QuoteIdentifier(name))
	return meta, nil
}

// CountRows returns the number of rows in an already quoted table reference,
// or zero when the count fails.
func (b *BaseSQLAdapter) CountRows(ctx context.Context, quotedTable string) int64 {
	var n int64
	//nolint:gosec // callers pass quoted identifiers
	if err := b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quotedTable).Scan(&n); err != nil {
		b.logger().Debug("row count failed", slog.String("table", quotedTable), slog.String("error", err.Error()))
		return 0
	}
	return n
}

// MissingColumns returns the names in want that meta lacks, compared
// case-insensitively, in the order given.
func MissingColumns(meta *core.TableMetadata, want []string) []string {
	have := make(map[string]bool, len(meta.Columns))
	for _, c := range meta.Columns {
		have[strings.ToLower(c.Name)] = true
	}
	var missing []string
	for _, name := range want {
		if !have[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	return missing
}
