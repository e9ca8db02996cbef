package store

import (
	"github.com/loykin/migscript/internal/store/postgresql"
	"github.com/loykin/migscript/internal/store/sqlite"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

type (
	SqliteConfig   = sqlite.Config
	PostgresConfig = postgresql.Config
)

// Config selects the history store backend.
type Config struct {
	Driver    string         `mapstructure:"type" yaml:"type"`
	TableName string         `mapstructure:"table_name" yaml:"table_name"`
	SQLite    SqliteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres  PostgresConfig `mapstructure:"postgres" yaml:"postgres"`

	// ContextKey scopes ListApplied to one migration context.
	ContextKey string `mapstructure:"-" yaml:"-"`
}
