package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/migscript"
	"github.com/loykin/migscript/internal/constants"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type SQLiteStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type PostgresStoreConfig struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

type StoreConfig struct {
	Type      string              `mapstructure:"type" yaml:"type"`
	TableName string              `mapstructure:"table_name" yaml:"table_name"`
	SQLite    SQLiteStoreConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres  PostgresStoreConfig `mapstructure:"postgres" yaml:"postgres"`
}

type ContextConfig struct {
	// Type is printed as ContextType in script headers
	Type string `mapstructure:"type" yaml:"type"`
	// Key is recorded with every history row and printed as ContextKey
	Key string `mapstructure:"key" yaml:"key"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
}

type RetryDocConfig struct {
	MaxRetries   *int          `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type ConfigDoc struct {
	MigrateDir string         `mapstructure:"migrate_dir" yaml:"migrate_dir"`
	Dialect    string         `mapstructure:"dialect" yaml:"dialect"`
	Context    ContextConfig  `mapstructure:"context" yaml:"context"`
	Store      StoreConfig    `mapstructure:"store" yaml:"store"`
	Logging    LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Retry      RetryDocConfig `mapstructure:"retry" yaml:"retry"`

	// path the document was loaded from, empty for defaults
	path string
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("config %s: %w", clean, err)
	}
	c.path = clean
	return nil
}

// loadConfigDoc loads the configured file. A missing file at the default
// location yields an empty document; an explicitly named file must exist.
func loadConfigDoc(v *viper.Viper) (*ConfigDoc, error) {
	doc := &ConfigDoc{}
	path := strings.TrimSpace(v.GetString("config"))
	if path == "" {
		return doc, nil
	}
	if err := doc.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Clean(path) == filepath.Clean(constants.DefaultConfigPath) {
			return doc, nil
		}
		return nil, err
	}
	return doc, nil
}

// migrateDir resolves the migration directory: explicit override, then
// migrate_dir, then the config file's directory, then the default.
func (c *ConfigDoc) migrateDir(override string) string {
	if d := strings.TrimSpace(override); d != "" {
		return d
	}
	if d := strings.TrimSpace(c.MigrateDir); d != "" {
		if c.path != "" && !filepath.IsAbs(d) {
			return filepath.Join(filepath.Dir(c.path), d)
		}
		return d
	}
	if c.path != "" {
		return filepath.Dir(c.path)
	}
	return constants.DefaultMigrateDir
}

// RunnerConfig converts the document, with CLI overrides from v, to a runner config.
func (c *ConfigDoc) RunnerConfig(v *viper.Viper) migscript.Config {
	dialect := strings.TrimSpace(v.GetString("dialect"))
	if dialect == "" {
		dialect = strings.TrimSpace(c.Dialect)
	}
	return migscript.Config{
		Dir:         c.migrateDir(v.GetString("migrate_dir")),
		Dialect:     dialect,
		ContextType: strings.TrimSpace(c.Context.Type),
		ContextKey:  strings.TrimSpace(c.Context.Key),
		Retry:       c.retryConfig(),
		Store: migscript.StoreConfig{
			Driver:    strings.TrimSpace(c.Store.Type),
			TableName: strings.TrimSpace(c.Store.TableName),
			SQLite:    migscript.SqliteConfig{Path: strings.TrimSpace(c.Store.SQLite.Path)},
			Postgres: migscript.PostgresConfig{
				DSN:      strings.TrimSpace(c.Store.Postgres.DSN),
				Host:     strings.TrimSpace(c.Store.Postgres.Host),
				Port:     c.Store.Postgres.Port,
				User:     strings.TrimSpace(c.Store.Postgres.User),
				Password: c.Store.Postgres.Password,
				DBName:   strings.TrimSpace(c.Store.Postgres.DBName),
				SSLMode:  strings.TrimSpace(c.Store.Postgres.SSLMode),
			},
		},
	}
}

// retryConfig overlays the retry section on the default policy.
func (c *ConfigDoc) retryConfig() *migscript.RetryConfig {
	rc := migscript.DefaultRetryConfig()
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries >= 0 {
		rc.MaxRetries = *c.Retry.MaxRetries
	}
	if c.Retry.InitialDelay > 0 {
		rc.InitialDelay = c.Retry.InitialDelay
	}
	if c.Retry.MaxDelay > 0 {
		rc.MaxDelay = c.Retry.MaxDelay
	}
	return rc
}

func (c *ConfigDoc) parseLogLevel() (migscript.LogLevel, error) {
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "error":
		return migscript.LogLevelError, nil
	case "warn", "warning":
		return migscript.LogLevelWarn, nil
	case "info", "":
		return migscript.LogLevelInfo, nil
	case "debug":
		return migscript.LogLevelDebug, nil
	default:
		return migscript.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *migscript.Logger
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "json":
		logger = migscript.NewJSONLogger(level)
	case "color", "colour":
		logger = migscript.NewColorLogger(level)
	case "text", "":
		logger = migscript.NewLogger(level)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	migscript.EnableMasking(maskingEnabled)
	migscript.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", format,
		"mask_sensitive", maskingEnabled)
	return nil
}

// openRunner builds a runner from the config file and CLI overrides.
func openRunner(v *viper.Viper) (*migscript.Runner, error) {
	doc, err := loadConfigDoc(v)
	if err != nil {
		return nil, err
	}
	return migscript.New(doc.RunnerConfig(v))
}
