package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/migscript/internal/retry"
)

// HistoryProber reports whether the history table exists.
type HistoryProber interface {
	HistoryExists(ctx context.Context) (bool, error)
}

// LiveHooks applies statements to a real database, one transaction per migration.
// A transaction failing with a transient error is rolled back and run again
// according to Retry (nil means retry.DefaultRetryConfig).
type LiveHooks struct {
	DB       *sql.DB
	Migrator *Migrator
	Prober   HistoryProber
	Retry    *retry.Config
}

var _ Hooks = (*LiveHooks)(nil)

func (l *LiveHooks) EnsureDatabase(ctx context.Context) error {
	if l.DB == nil {
		return errors.New("live hooks: database is not configured")
	}
	return l.DB.PingContext(ctx)
}

func (l *LiveHooks) HistoryExists(ctx context.Context) (bool, error) {
	if l.Prober == nil {
		return false, nil
	}
	return l.Prober.HistoryExists(ctx)
}

func (l *LiveHooks) GenerateStatements(_ context.Context, _ string, ops []Operation) ([]Statement, error) {
	return l.Migrator.Translate(ops)
}

func (l *LiveHooks) ExecuteStatements(ctx context.Context, stmts []Statement, migrationID string) error {
	if len(stmts) == 0 {
		return nil
	}
	return retry.Do(ctx, l.Retry, func() error {
		return l.execTx(ctx, stmts, migrationID)
	})
}

func (l *LiveHooks) execTx(ctx context.Context, stmts []Statement, migrationID string) (err error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for i, st := range stmts {
		if strings.TrimSpace(st.SQL) == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, st.SQL); err != nil {
			return fmt.Errorf("statement %d of %s: %w", i+1, migrationLabel(migrationID), err)
		}
	}
	return tx.Commit()
}

func (l *LiveHooks) Seed(ctx context.Context) error {
	ops := l.Migrator.SeedOperations()
	if len(ops) == 0 {
		return nil
	}
	stmts, err := l.Migrator.Translate(ops)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := l.ExecuteStatements(ctx, stmts, ""); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func migrationLabel(id string) string {
	if id == "" {
		return "seed"
	}
	return id
}
