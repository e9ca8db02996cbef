package migscript

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/loykin/migscript/internal/common"
	"github.com/loykin/migscript/internal/constants"
	imig "github.com/loykin/migscript/internal/migration"
	"github.com/loykin/migscript/internal/retry"
	"github.com/loykin/migscript/internal/script"
	"github.com/loykin/migscript/internal/sqlgen"
	"github.com/loykin/migscript/internal/store"
	"github.com/loykin/migscript/internal/util"
)

// Re-export commonly used types for public API

type Migration = imig.Migration

type Operation = imig.Operation

type Column = imig.Column

// StoreConfig selects and configures the history store backend.
type StoreConfig = store.Config

type SqliteConfig = store.SqliteConfig

type PostgresConfig = store.PostgresConfig

// RetryConfig controls how live migrations retry transient database errors.
type RetryConfig = retry.Config

// DefaultRetryConfig returns the retry policy used when Config.Retry is nil.
func DefaultRetryConfig() *RetryConfig { return retry.DefaultRetryConfig() }

const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql

	// InitialDatabase is the migration reference for an empty database.
	InitialDatabase = constants.InitialDatabase
)

var (
	ErrAutomaticMigrationNotScriptable = script.ErrAutomaticMigrationNotScriptable
	ErrDowngradeBoundsRequired         = script.ErrDowngradeBoundsRequired
	ErrMigrationNotFound               = imig.ErrMigrationNotFound
	ErrAmbiguousMigration              = imig.ErrAmbiguousMigration
	ErrTargetRequired                  = imig.ErrTargetRequired
	ErrTargetBehind                    = imig.ErrTargetBehind
	ErrUnsupportedDriver               = store.ErrUnsupportedDriver

	ErrDialectMismatch = errors.New("script dialect differs from the store driver")
)

// Config describes one migration context.
type Config struct {
	// Dir holds the migration files and the optional seed.yaml.
	Dir   string
	Store StoreConfig
	// Dialect of generated SQL; defaults to the store driver, then sqlite.
	Dialect     string
	ContextType string
	ContextKey  string
	Logger      *Logger
	// Retry applies to live Up and Down only; nil uses DefaultRetryConfig.
	Retry *RetryConfig
}

// Runner generates scripts for, and applies, the migrations of one directory.
// Script generation never opens the store.
type Runner struct {
	cfg      Config
	dialect  string
	migrator *imig.Migrator
	scripter *script.Scripter
	logger   *common.Logger
	store    *store.Store
}

func New(cfg Config) (*Runner, error) {
	dir, ok := util.TrimEmptyCheck(cfg.Dir)
	if !ok {
		return nil, errors.New("migration dir is required")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	cfg.Dir = dir

	cfg.Store.Driver = util.TrimWithDefault(cfg.Store.Driver, constants.DefaultDialect)
	driver := cfg.Dialect
	if util.IsBlank(driver) {
		driver = cfg.Store.Driver
	}
	dialectName, err := store.NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	dialect, err := store.DialectFor(dialectName)
	if err != nil {
		return nil, err
	}

	logger := common.OrDefault(cfg.Logger)
	m, err := imig.NewFromDir(dir, imig.Options{
		Translator: sqlgen.New(dialect, cfg.Store.TableName),
		ContextKey: cfg.ContextKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return &Runner{
		cfg:      cfg,
		dialect:  dialectName,
		migrator: m,
		scripter: script.New(m, script.Options{
			ContextType: cfg.ContextType,
			ContextKey:  cfg.ContextKey,
			Logger:      logger,
		}),
		logger: logger.WithComponent("runner"),
	}, nil
}

// Migrations returns the local migrations, oldest first.
func (r *Runner) Migrations() []Migration {
	return r.migrator.Migrations()
}

// Script returns the SQL moving the schema from one migration to another.
// An empty from means an empty database; an empty to means the latest
// migration. If from is newer than to, the downward script is returned.
func (r *Runner) Script(ctx context.Context, from, to string) (string, error) {
	return r.scripter.Script(ctx, from, to)
}

// ScriptDown returns the SQL reverting the migrations between from and to,
// both included. Use InitialDatabase as a bound to also drop the history table.
func (r *Runner) ScriptDown(ctx context.Context, from, to string) (string, error) {
	return r.scripter.ScriptDown(ctx, from, to)
}

// Up applies pending migrations up to target (empty = latest).
func (r *Runner) Up(ctx context.Context, target string) error {
	m, hooks, err := r.live()
	if err != nil {
		return err
	}
	return m.Update(ctx, target, hooks)
}

// Down reverts applied migrations newer than target.
func (r *Runner) Down(ctx context.Context, target string) error {
	m, hooks, err := r.live()
	if err != nil {
		return err
	}
	return m.Rollback(ctx, target, hooks)
}

// Status reports applied and pending migrations from the history store.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	st, err := r.openStore()
	if err != nil {
		return Status{}, err
	}
	applied, err := st.ListApplied(ctx)
	if err != nil {
		return Status{}, err
	}
	return newStatus(r.migrator.LocalMigrationIDs(), applied), nil
}

func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Runner) live() (*imig.Migrator, imig.Hooks, error) {
	st, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}
	m := r.migrator.WithHistory(st)
	return m, &imig.LiveHooks{DB: st.DB, Migrator: m, Prober: st, Retry: r.cfg.Retry}, nil
}

func (r *Runner) openStore() (*store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	cfg := r.cfg.Store
	cfg.ContextKey = r.cfg.ContextKey
	driver, err := store.NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if driver != r.dialect {
		return nil, fmt.Errorf("%w: %s vs %s", ErrDialectMismatch, r.dialect, driver)
	}
	if driver == store.DriverSqlite && util.IsBlank(cfg.SQLite.Path) {
		cfg.SQLite.Path = filepath.Join(r.cfg.Dir, constants.DefaultSQLiteFileName)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("history store opened", "driver", driver, "table", st.TableName())
	r.store = st
	return st, nil
}
