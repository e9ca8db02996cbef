package sqlite

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDialect(t *testing.T) {
	dialect := NewDialect()
	if dialect == nil {
		t.Fatal("NewDialect() returned nil")
	}
	if dialect.Name() != "sqlite" || dialect.GetDriverName() != "sqlite" {
		t.Errorf("unexpected names: %s / %s", dialect.Name(), dialect.GetDriverName())
	}
}

func TestDialect_GetPlaceholder(t *testing.T) {
	dialect := NewDialect()

	// SQLite uses the same placeholder for every position
	for _, i := range []int{1, 2, 10} {
		if got := dialect.GetPlaceholder(i); got != "?" {
			t.Errorf("GetPlaceholder(%d) = %v, want ?", i, got)
		}
	}
}

func TestDialect_QuoteIdent(t *testing.T) {
	dialect := NewDialect()
	tests := []struct {
		in, want string
	}{
		{"users", `"users"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := dialect.QuoteIdent(tt.in); got != tt.want {
			t.Errorf("QuoteIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDialect_ColumnType(t *testing.T) {
	dialect := NewDialect()
	tests := []struct {
		in, want string
	}{
		{"string", "TEXT"},
		{" Int ", "INTEGER"},
		{"bool", "INTEGER"},
		{"timestamp", "TEXT"},
		{"double", "REAL"},
		{"decimal", "NUMERIC"},
		{"bytes", "BLOB"},
		{"varchar(16)", "VARCHAR(16)"},
	}
	for _, tt := range tests {
		if got := dialect.ColumnType(tt.in); got != tt.want {
			t.Errorf("ColumnType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDialect_ScriptSettings(t *testing.T) {
	dialect := NewDialect()
	if got := dialect.BatchTerminator(); got != "" {
		t.Errorf("BatchTerminator() = %q, want empty", got)
	}
	if q := dialect.HistoryExistsQuery(); !strings.Contains(q, "sqlite_master") || !strings.HasSuffix(q, "?") {
		t.Errorf("HistoryExistsQuery() = %s", q)
	}
	dsn := dialect.DSN("/tmp/x.db")
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?") || !strings.Contains(dsn, "busy_timeout(5000)") {
		t.Errorf("DSN() = %s", dsn)
	}
}

func TestDialect_Connect(t *testing.T) {
	dialect := NewDialect()
	db, err := dialect.Connect(dialect.DSN(filepath.Join(t.TempDir(), "c.db")))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE "h" ("id" TEXT)`); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRow(dialect.HistoryExistsQuery(), "h").Scan(&n); err != nil || n != 1 {
		t.Fatalf("history probe = %d, %v", n, err)
	}
}
