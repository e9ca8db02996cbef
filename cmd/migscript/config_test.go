package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/migscript"
	"github.com/loykin/migscript/internal/constants"
	"github.com/spf13/viper"
)

func TestConfigDoc_Load_NotRegularFile(t *testing.T) {
	d := t.TempDir()
	var c ConfigDoc
	if err := c.Load(d); err == nil {
		t.Fatalf("expected error for directory path (not a regular file)")
	}
}

func TestConfigDoc_LoadAndConvert(t *testing.T) {
	d := t.TempDir()
	cfgPath := filepath.Join(d, "config.yaml")
	body := `
migrate_dir: migrations
dialect: postgres
context:
  type: billing
  key: eu-1
store:
  type: postgres
  table_name: billing_history
  postgres:
    host: db.local
    user: app
    password: " secret "
    dbname: billing
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	var doc ConfigDoc
	if err := doc.Load(cfgPath); err != nil {
		t.Fatalf("Load: %v", err)
	}

	v := viper.New()
	cfg := doc.RunnerConfig(v)
	if cfg.Dir != filepath.Join(d, "migrations") {
		t.Errorf("Dir = %s", cfg.Dir)
	}
	if cfg.Dialect != "postgres" || cfg.ContextType != "billing" || cfg.ContextKey != "eu-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.TableName != "billing_history" {
		t.Errorf("unexpected store: %+v", cfg.Store)
	}
	if cfg.Store.Postgres.Password != " secret " {
		t.Errorf("password must be kept verbatim, got %q", cfg.Store.Postgres.Password)
	}

	v.Set("migrate_dir", "/override")
	v.Set("dialect", "sqlite")
	cfg = doc.RunnerConfig(v)
	if cfg.Dir != "/override" || cfg.Dialect != "sqlite" {
		t.Errorf("flags should override config: %+v", cfg)
	}
}

func TestConfigDoc_MigrateDirFallbacks(t *testing.T) {
	var empty ConfigDoc
	if got := empty.migrateDir(""); got != constants.DefaultMigrateDir {
		t.Errorf("default dir = %s", got)
	}
	loaded := ConfigDoc{path: "/etc/migscript/config.yaml"}
	if got := loaded.migrateDir(""); got != "/etc/migscript" {
		t.Errorf("config dir fallback = %s", got)
	}
	abs := ConfigDoc{path: "/etc/migscript/config.yaml", MigrateDir: "/srv/migrations"}
	if got := abs.migrateDir(""); got != "/srv/migrations" {
		t.Errorf("absolute migrate_dir = %s", got)
	}
}

func TestLoadConfigDoc_MissingFiles(t *testing.T) {
	v := viper.New()
	v.Set("config", constants.DefaultConfigPath)
	if _, err := loadConfigDoc(v); err != nil {
		t.Fatalf("missing default config should be tolerated: %v", err)
	}
	v.Set("config", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := loadConfigDoc(v); err == nil {
		t.Fatal("missing explicit config should fail")
	}
}

func TestConfigDoc_SetupLogging(t *testing.T) {
	tests := []struct {
		name    string
		logging LoggingConfig
		wantErr bool
	}{
		{name: "defaults", logging: LoggingConfig{}},
		{name: "json debug", logging: LoggingConfig{Level: "debug", Format: "json"}},
		{name: "color warn", logging: LoggingConfig{Level: "warning", Format: "color"}},
		{name: "bad level", logging: LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", logging: LoggingConfig{Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ConfigDoc{Logging: tt.logging}
			err := doc.SetupLogging()
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetupLogging() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDoc_RetryOverlay(t *testing.T) {
	d := t.TempDir()
	cfgPath := filepath.Join(d, "config.yaml")
	body := `
retry:
  max_retries: 0
  initial_delay: 250ms
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	var doc ConfigDoc
	if err := doc.Load(cfgPath); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rc := doc.RunnerConfig(viper.New()).Retry
	if rc.MaxRetries != 0 || rc.InitialDelay != 250*time.Millisecond {
		t.Errorf("retry overlay not applied: %+v", rc)
	}
	if rc.MaxDelay != migscript.DefaultRetryConfig().MaxDelay {
		t.Errorf("unset fields must keep defaults: %+v", rc)
	}

	var empty ConfigDoc
	if got := empty.retryConfig(); got.MaxRetries != migscript.DefaultRetryConfig().MaxRetries {
		t.Errorf("default retries = %d", got.MaxRetries)
	}
}
