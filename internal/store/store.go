package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/loykin/migscript/internal/common"
	"github.com/loykin/migscript/internal/constants"
	"github.com/loykin/migscript/internal/store/postgresql"
	"github.com/loykin/migscript/internal/store/sqlite"
	"github.com/loykin/migscript/internal/util"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

// Dialect is implemented by the sqlite and postgresql sub-packages.
type Dialect interface {
	Name() string
	GetDriverName() string
	GetPlaceholder(index int) string
	QuoteIdent(name string) string
	ColumnType(t string) string
	BatchTerminator() string
	HistoryExistsQuery() string
	Connect(dsn string) (*sql.DB, error)
}

// NormalizeDriver maps driver aliases to DriverSqlite or DriverPostgresql.
func NormalizeDriver(driver string) (string, error) {
	switch util.TrimAndLower(driver) {
	case "", "sqlite", "sqlite3":
		return DriverSqlite, nil
	case "postgres", "postgresql", "pg":
		return DriverPostgresql, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// DialectFor returns the dialect for a driver name or alias.
func DialectFor(driver string) (Dialect, error) {
	d, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	if d == DriverPostgresql {
		return postgresql.NewDialect(), nil
	}
	return sqlite.NewDialect(), nil
}

// Store reads the migration history table.
type Store struct {
	DB      *sql.DB
	dialect    Dialect
	table      string
	contextKey string
}

// Open connects to the configured backend. The history table is not created
// here; it is created by the baseline migration step.
func Open(cfg Config) (*Store, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	var dsn string
	switch d := dialect.(type) {
	case *postgresql.Dialect:
		dsn = cfg.Postgres.DSNString()
		if dsn == "" {
			return nil, errors.New("postgres store requires dsn or host")
		}
	case *sqlite.Dialect:
		path, ok := util.TrimEmptyCheck(cfg.SQLite.Path)
		if !ok {
			return nil, errors.New("sqlite store requires path")
		}
		dsn = d.DSN(path)
	}

	log := common.GetLogger().WithStore(dialect.Name())
	log.Debug("opening history store", "dsn", common.MaskSensitiveData(dsn))

	db, err := dialect.Connect(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		DB:         db,
		dialect:    dialect,
		table:      util.TrimWithDefault(cfg.TableName, constants.DefaultHistoryTable),
		contextKey: strings.TrimSpace(cfg.ContextKey),
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Dialect returns the store dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// TableName returns the history table name.
func (s *Store) TableName() string {
	return s.table
}

// HistoryExists reports whether the history table is present.
func (s *Store) HistoryExists(ctx context.Context) (bool, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, s.dialect.HistoryExistsQuery(), s.table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListApplied returns the migration ids applied under the store's context key,
// sorted ascending. A missing history table yields an empty list.
func (s *Store) ListApplied(ctx context.Context) ([]string, error) {
	exists, err := s.HistoryExists(ctx)
	if err != nil || !exists {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		s.dialect.QuoteIdent(constants.HistoryColumnMigrationID), s.dialect.QuoteIdent(s.table),
		s.dialect.QuoteIdent(constants.HistoryColumnContextKey), s.dialect.GetPlaceholder(1))
	rows, err := s.DB.QueryContext(ctx, q, s.contextKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// byte order, independent of the database collation
	sort.Strings(out)
	return out, nil
}
