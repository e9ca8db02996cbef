package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/loykin/migscript/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect implements SQL dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

var columnTypes = map[string]string{
	"string":    "TEXT",
	"text":      "TEXT",
	"varchar":   "TEXT",
	"int":       "INTEGER",
	"integer":   "INTEGER",
	"bigint":    "INTEGER",
	"bool":      "INTEGER",
	"boolean":   "INTEGER",
	"timestamp": "TEXT",
	"datetime":  "TEXT",
	"float":     "REAL",
	"double":    "REAL",
	"real":      "REAL",
	"decimal":   "NUMERIC",
	"json":      "TEXT",
	"uuid":      "TEXT",
	"blob":      "BLOB",
	"bytes":     "BLOB",
}

// Name returns the dialect name used in configuration
func (s *Dialect) Name() string {
	return "sqlite"
}

// GetDriverName returns the database/sql driver name
func (s *Dialect) GetDriverName() string {
	return "sqlite"
}

// GetPlaceholder returns SQLite-style placeholders (?)
func (s *Dialect) GetPlaceholder(_ int) string {
	return "?"
}

// QuoteIdent quotes an identifier with double quotes
func (s *Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnType maps an abstract column type to a SQLite storage class.
// Unknown types are passed through upper-cased.
func (s *Dialect) ColumnType(t string) string {
	key := strings.ToLower(strings.TrimSpace(t))
	if mapped, ok := columnTypes[key]; ok {
		return mapped
	}
	return strings.ToUpper(strings.TrimSpace(t))
}

// BatchTerminator returns the batch separator; SQLite scripts have none
func (s *Dialect) BatchTerminator() string {
	return ""
}

// HistoryExistsQuery returns a query counting tables with the given name
func (s *Dialect) HistoryExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

// DSN builds the modernc sqlite DSN for a database file
func (s *Dialect) DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
}

// Connect establishes a connection to SQLite with connection pooling
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open(s.GetDriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite-specific configuration (SQLite doesn't support multiple writers)
	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)

	return db, nil
}
