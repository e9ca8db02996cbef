package migscript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeMigrations(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"001_users.yaml": `
description: users table
up:
  - kind: create_table
    table: users
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: email, type: string}
  - kind: create_index
    table: users
    index: ux_users_email
    unique: true
    columns: [{name: email}]
down:
  - kind: drop_index
    index: ux_users_email
  - kind: drop_table
    table: users
`,
		"002_user_age.yaml": `
up:
  - kind: add_column
    table: users
    column: {name: age, type: int, nullable: true}
down:
  - kind: drop_column
    table: users
    column: {name: age}
`,
		"seed.yaml": `
seed:
  - kind: sql
    sql: INSERT OR IGNORE INTO users (id, email) VALUES (1, 'admin@example.com')
`,
		"README.md": "not a migration",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newSQLiteRunner(t *testing.T, dir string) *Runner {
	t.Helper()
	r, err := New(Config{
		Dir:        dir,
		Store:      StoreConfig{Driver: "sqlite", SQLite: SqliteConfig{Path: filepath.Join(t.TempDir(), "state.db")}},
		ContextKey: "app",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func appliedIDs(t *testing.T, r *Runner) []string {
	t.Helper()
	st, err := r.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return st.Applied
}

func TestRunner_UpDownStatus(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRunner(t, writeMigrations(t))

	if got := appliedIDs(t, r); len(got) != 0 {
		t.Fatalf("fresh store applied = %v", got)
	}

	if err := r.Up(ctx, "user_age"); err != nil {
		t.Fatalf("Up: %v", err)
	}
	st, err := r.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Current != "002_user_age" || len(st.Pending) != 0 {
		t.Fatalf("status after up = %+v", st)
	}
	var n int
	if err := r.store.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE age IS NULL`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("seeded rows = %d, %v", n, err)
	}
	var key string
	if err := r.store.DB.QueryRow(`SELECT context_key FROM schema_migrations WHERE migration_id = '001_users'`).Scan(&key); err != nil || key != "app" {
		t.Fatalf("context key = %q, %v", key, err)
	}

	// nothing pending; seed is idempotent
	if err := r.Up(ctx, ""); err != nil {
		t.Fatalf("second Up: %v", err)
	}

	if err := r.Down(ctx, "001_users"); err != nil {
		t.Fatalf("Down: %v", err)
	}
	if got := appliedIDs(t, r); !reflect.DeepEqual(got, []string{"001_users"}) {
		t.Fatalf("applied after down = %v", got)
	}
	if err := r.Up(ctx, "002_user_age"); err != nil {
		t.Fatalf("re-Up: %v", err)
	}

	if err := r.Down(ctx, InitialDatabase); err != nil {
		t.Fatalf("Down to initial: %v", err)
	}
	exists, err := r.store.HistoryExists(ctx)
	if err != nil || exists {
		t.Fatalf("history table should be dropped: %v, %v", exists, err)
	}
	if got := appliedIDs(t, r); len(got) != 0 {
		t.Fatalf("applied after full rollback = %v", got)
	}
}

func TestRunner_UpErrors(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRunner(t, writeMigrations(t))
	if err := r.Up(ctx, "002_user_age"); err != nil {
		t.Fatal(err)
	}
	if err := r.Up(ctx, "001_users"); !errors.Is(err, ErrTargetBehind) {
		t.Fatalf("expected ErrTargetBehind, got %v", err)
	}
	if err := r.Down(ctx, ""); !errors.Is(err, ErrTargetRequired) {
		t.Fatalf("expected ErrTargetRequired, got %v", err)
	}
	if err := r.Up(ctx, "nope"); !errors.Is(err, ErrMigrationNotFound) {
		t.Fatalf("expected ErrMigrationNotFound, got %v", err)
	}
}

func TestRunner_ScriptDoesNotTouchStore(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	dbPath := filepath.Join(t.TempDir(), "never.db")
	r, err := New(Config{Dir: dir, Store: StoreConfig{Driver: "sqlite", SQLite: SqliteConfig{Path: dbPath}}})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	out, err := r.Script(ctx, "", "")
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	for _, want := range []string{
		"-- START Full Migration Script --",
		`CREATE UNIQUE INDEX "ux_users_email" ON "users" ("email");`,
		`ALTER TABLE "users" ADD COLUMN "age" INTEGER;`,
		"TargetMigrationId: LATEST",
		"ContextType: migscript",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("script missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "admin@example.com") {
		t.Error("seed data must not be scripted")
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("script generation created the store file: %v", err)
	}

	down, err := r.ScriptDown(ctx, "002_user_age", "001_users")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(down, `ALTER TABLE "users" DROP COLUMN "age";`) || !strings.Contains(down, `DROP TABLE "users";`) {
		t.Fatalf("unexpected downward script:\n%s", down)
	}
	if _, err := r.Script(ctx, "", "002_user_age_AutomaticMigration"); !errors.Is(err, ErrAutomaticMigrationNotScriptable) {
		t.Fatalf("expected ErrAutomaticMigrationNotScriptable, got %v", err)
	}
}

func TestRunner_ScriptAppliesCleanly(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRunner(t, writeMigrations(t))
	out, err := r.Script(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	st, err := r.openStore()
	if err != nil {
		t.Fatal(err)
	}
	body := out[strings.Index(out, "-- START Full Migration Script --"):strings.Index(out, "-- END Full Migration Script --")]
	for _, stmt := range strings.Split(body, ";\n") {
		stmt = strings.TrimSpace(strings.TrimPrefix(stmt, "-- START Full Migration Script --"))
		if stmt == "" {
			continue
		}
		if _, err := st.DB.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	status, err := r.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Pending) != 0 || status.Current != "002_user_age" {
		t.Fatalf("status after applying script = %+v", status)
	}
}

func TestRunner_DialectMismatch(t *testing.T) {
	ctx := context.Background()
	r, err := New(Config{
		Dir:     writeMigrations(t),
		Dialect: "postgres",
		Store:   StoreConfig{Driver: "sqlite", SQLite: SqliteConfig{Path: filepath.Join(t.TempDir(), "x.db")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	out, err := r.Script(ctx, "001_users", "")
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if !strings.Contains(out, `ALTER TABLE "users" ADD COLUMN "age" INTEGER;`) {
		t.Fatalf("unexpected script:\n%s", out)
	}
	if err := r.Up(ctx, ""); !errors.Is(err, ErrDialectMismatch) {
		t.Fatalf("expected ErrDialectMismatch, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without dir")
	}
	if _, err := New(Config{Dir: t.TempDir(), Store: StoreConfig{Driver: "oracle"}}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
	if _, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func newRunnerAt(t *testing.T, dir, dbPath, contextKey string) *Runner {
	t.Helper()
	r, err := New(Config{
		Dir:        dir,
		Store:      StoreConfig{Driver: "sqlite", SQLite: SqliteConfig{Path: dbPath}},
		ContextKey: contextKey,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestRunner_UpAfterFailedFirstMigration(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	file := filepath.Join(dir, "001_a.yaml")

	writeFile(t, file, "up:\n  - kind: sql\n    sql: THIS IS NOT SQL\n")
	first := newRunnerAt(t, dir, dbPath, "app")
	if err := first.Up(ctx, ""); err == nil {
		t.Fatal("expected the broken migration to fail")
	}
	// the baseline committed on its own, leaving an empty history table
	exists, err := first.store.HistoryExists(ctx)
	if err != nil || !exists {
		t.Fatalf("history table after failure = %v, %v", exists, err)
	}
	_ = first.Close()

	writeFile(t, file, "up:\n  - kind: sql\n    sql: CREATE TABLE a (id INTEGER)\ndown:\n  - kind: drop_table\n    table: a\n")
	second := newRunnerAt(t, dir, dbPath, "app")
	if err := second.Up(ctx, ""); err != nil {
		t.Fatalf("Up after fixing the migration: %v", err)
	}
	if got := appliedIDs(t, second); !reflect.DeepEqual(got, []string{"001_a"}) {
		t.Fatalf("applied = %v", got)
	}
}

func writeContextMigrations(t *testing.T, table string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "001_init.yaml"),
		"up:\n  - kind: create_table\n    table: "+table+"\n    columns: [{name: id, type: int, primary_key: true}]\n"+
			"down:\n  - kind: drop_table\n    table: "+table+"\n")
	writeFile(t, filepath.Join(dir, "002_extra.yaml"),
		"up:\n  - kind: add_column\n    table: "+table+"\n    column: {name: note, type: text, nullable: true}\n"+
			"down:\n  - kind: drop_column\n    table: "+table+"\n    column: {name: note}\n")
	return dir
}

func TestRunner_ContextsShareStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	// same migration ids in both contexts
	billing := newRunnerAt(t, writeContextMigrations(t, "invoices"), dbPath, "billing")
	users := newRunnerAt(t, writeContextMigrations(t, "accounts"), dbPath, "users")
	if err := billing.Up(ctx, ""); err != nil {
		t.Fatalf("billing Up: %v", err)
	}
	if err := users.Up(ctx, ""); err != nil {
		t.Fatalf("users Up: %v", err)
	}

	for name, r := range map[string]*Runner{"billing": billing, "users": users} {
		st, err := r.Status(ctx)
		if err != nil {
			t.Fatalf("%s Status: %v", name, err)
		}
		if len(st.Applied) != 2 || len(st.Unknown) != 0 || len(st.Pending) != 0 {
			t.Errorf("%s status leaks other contexts: %+v", name, st)
		}
	}

	if err := users.Down(ctx, "001_init"); err != nil {
		t.Fatalf("users Down: %v", err)
	}
	if got := appliedIDs(t, users); !reflect.DeepEqual(got, []string{"001_init"}) {
		t.Fatalf("users applied after Down = %v", got)
	}
	if got := appliedIDs(t, billing); !reflect.DeepEqual(got, []string{"001_init", "002_extra"}) {
		t.Fatalf("billing applied after users Down = %v", got)
	}
}

func TestNew_DefaultDialect(t *testing.T) {
	r, err := New(Config{Dir: writeMigrations(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.dialect != DriverSqlite || r.cfg.Store.Driver != "sqlite" {
		t.Fatalf("dialect = %q, store driver = %q", r.dialect, r.cfg.Store.Driver)
	}
}
