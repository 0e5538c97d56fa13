// Package engine evaluates the formulas of a card project.
// It resolves dependencies between formula and aggregate properties, computes
// them in memory level by level, compiles them to SQL and verifies that the
// database computes the same values.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/leapstack-labs/cardformula/internal/loader"
	"github.com/leapstack-labs/cardformula/internal/state"
	"github.com/leapstack-labs/cardformula/pkg/adapter"
	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/dialect"
	"github.com/leapstack-labs/cardformula/pkg/display"
	"github.com/shopspring/decimal"
)

// DefaultTable is the table cards are loaded into for verification.
const DefaultTable = "cards"

// DefaultTolerance is the largest relative difference between an in-memory and a
// database number that still counts as equal.
var DefaultTolerance = decimal.New(1, -6)

// Engine orchestrates evaluation of a card collection.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// SQL dialect of the target, known before connecting
	dialect *dialect.Dialect

	logger *slog.Logger

	store      state.Store
	project    string
	collection *card.Collection
	formatter  *display.Formatter
	table      string
	tolerance  decimal.Decimal
	workers    int
}

// Config holds engine configuration.
type Config struct {
	// ProjectPath is the YAML project file. Ignored when Collection is set.
	ProjectPath string
	// Collection is an already loaded collection.
	Collection *card.Collection
	// ProjectName labels runs in the history. Defaults to the collection name.
	ProjectName string
	// AdapterConfig is the database target used by Verify. Defaults to in-memory SQLite.
	AdapterConfig *adapter.Config
	// StatePath is the run history database. Empty disables history.
	StatePath string
	// Formatter formats values for reports. Its precision also pads SQL literals.
	Formatter *display.Formatter
	// Table is the verification table name.
	Table string
	// Tolerance overrides DefaultTolerance when positive.
	Tolerance decimal.Decimal
	// Workers bounds the formulas evaluated in parallel. Defaults to GOMAXPROCS.
	Workers int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine with a lazy database connection.
// The database adapter is only connected when Verify is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	coll := cfg.Collection
	if coll == nil {
		if cfg.ProjectPath == "" {
			return nil, errors.New("either a project path or a collection is required")
		}
		logger.Debug("loading project", "path", cfg.ProjectPath)
		p, err := loader.LoadFile(cfg.ProjectPath)
		if err != nil {
			return nil, err
		}
		coll = p.Collection
	}

	project := cfg.ProjectName
	if project == "" {
		project = coll.Name
	}

	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "sqlite"
	}
	dbConfig.Type = strings.ToLower(dbConfig.Type)
	if canonical, ok := adapter.Resolve(dbConfig.Type); ok {
		dbConfig.Type = canonical
	}

	formatter := cfg.Formatter
	if formatter == nil {
		formatter = display.New("", -1)
	}

	// Get dialect from registry based on target type (no DB connection needed)
	// so SQL can be compiled without a database.
	var d *dialect.Dialect
	if resolved, ok := dialect.Get(dbConfig.Type); ok {
		d = resolved.WithPrecision(formatter.Precision)
	}

	var store state.Store
	if cfg.StatePath != "" {
		s := state.NewSQLiteStore(logger)
		if err := s.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := s.InitSchema(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		store = s
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	tolerance := cfg.Tolerance
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.Debug("initialized engine",
		"project", project,
		"properties", len(coll.Properties()),
		"cards", len(coll.Cards()),
		"target", dbConfig.Type)

	return &Engine{
		dbConfig:   dbConfig,
		dialect:    d,
		logger:     logger,
		store:      store,
		project:    project,
		collection: coll,
		formatter:  formatter,
		table:      table,
		tolerance:  tolerance,
		workers:    workers,
	}, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.Open(ctx, e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.dialect = db.Dialect().WithPrecision(e.formatter.Precision)

	e.logger.Debug("database connected", "dialect", e.dialect.GetName())

	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %w", errors.Join(errs...))
	}
	return nil
}

// --- Getters (public accessors) ---

// Collection returns the collection being evaluated.
func (e *Engine) Collection() *card.Collection {
	return e.collection
}

// Project returns the project name used in the run history.
func (e *Engine) Project() string {
	return e.project
}

// Formatter returns the display formatter.
func (e *Engine) Formatter() *display.Formatter {
	return e.formatter
}

// GetDialect returns the SQL dialect of the target. Nil when the target type has
// no registered dialect.
func (e *Engine) GetDialect() *dialect.Dialect {
	return e.dialect
}

// GetStateStore returns the run history store, or nil when history is disabled.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

// property finds a property by name or returns an error naming the unknown one.
func (e *Engine) property(name string) (*card.PropertyDefinition, error) {
	def, ok := e.collection.Property(name)
	if !ok {
		return nil, fmt.Errorf("property %q does not exist", name)
	}
	return def, nil
}
