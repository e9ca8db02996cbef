package constants

import "time"

// Migration identifier constants
const (
	// InitialDatabase is the reserved migration id for an empty database.
	InitialDatabase = "0"

	// AutomaticMigrationSuffix marks migrations generated without an explicit name.
	AutomaticMigrationSuffix = "_AutomaticMigration"

	// Labels used in script headers when a bound is not an explicit migration
	InitialLabel = "INITIAL"
	LatestLabel  = "LATEST"

	// SeedFileName is the optional seed file inside the migration directory
	SeedFileName = "seed.yaml"
)

// Database Constants
const (
	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// Connection pool settings
	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	// Default history table name and its columns
	DefaultHistoryTable      = "schema_migrations"
	HistoryColumnMigrationID = "migration_id"
	HistoryColumnContextKey  = "context_key"
	HistoryColumnAppliedAt   = "applied_at"

	// DefaultSQLiteFileName is created under the migration directory when no store is configured
	DefaultSQLiteFileName = "migscript.db"
)

// Time and Duration Constants
const (
	// Connection pool lifetimes
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute
)

// CLI defaults
const (
	DefaultConfigPath  = "./config/config.yaml"
	DefaultMigrateDir  = "./config/migration"
	DefaultContextType = "migscript"
	DefaultDialect     = "sqlite"
)
