package postgresql

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/migscript/internal/constants"
)

// Dialect implements SQL dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

var columnTypes = map[string]string{
	"string":    "VARCHAR(255)",
	"text":      "TEXT",
	"varchar":   "VARCHAR(255)",
	"int":       "INTEGER",
	"integer":   "INTEGER",
	"bigint":    "BIGINT",
	"bool":      "BOOLEAN",
	"boolean":   "BOOLEAN",
	"timestamp": "TIMESTAMPTZ",
	"datetime":  "TIMESTAMPTZ",
	"float":     "DOUBLE PRECISION",
	"double":    "DOUBLE PRECISION",
	"real":      "REAL",
	"decimal":   "NUMERIC",
	"json":      "JSONB",
	"uuid":      "UUID",
	"blob":      "BYTEA",
	"bytes":     "BYTEA",
}

// Name returns the dialect name used in configuration
func (p *Dialect) Name() string {
	return "postgresql"
}

// GetDriverName returns the database/sql driver name registered by pgx stdlib
func (p *Dialect) GetDriverName() string {
	return "pgx"
}

// GetPlaceholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (p *Dialect) GetPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// QuoteIdent quotes an identifier with double quotes
func (p *Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnType maps an abstract column type to a PostgreSQL type.
// Unknown types are passed through upper-cased.
func (p *Dialect) ColumnType(t string) string {
	key := strings.ToLower(strings.TrimSpace(t))
	if mapped, ok := columnTypes[key]; ok {
		return mapped
	}
	return strings.ToUpper(strings.TrimSpace(t))
}

// BatchTerminator returns the batch separator; psql scripts need none
func (p *Dialect) BatchTerminator() string {
	return ""
}

// HistoryExistsQuery returns a query counting tables with the given name in the current schema
func (p *Dialect) HistoryExistsQuery() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
}

// Connect establishes a connection to PostgreSQL with connection pooling
func (p *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open(p.GetDriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	db.SetMaxOpenConns(constants.DefaultPostgresMaxConnections)
	db.SetMaxIdleConns(constants.DefaultPostgresMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}
