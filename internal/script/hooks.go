package script

import (
	"context"

	"github.com/loykin/migscript/internal/migration"
)

// hooks diverts the engine's side effects into a State. Nothing here touches
// a database.
type hooks struct {
	state  *State
	engine Engine
}

var _ migration.Hooks = (*hooks)(nil)

func (h *hooks) EnsureDatabase(context.Context) error {
	return nil
}

// HistoryExists always reports a blank slate.
func (h *hooks) HistoryExists(context.Context) (bool, error) {
	return false, nil
}

func (h *hooks) GenerateStatements(_ context.Context, migrationID string, ops []migration.Operation) ([]migration.Statement, error) {
	if b := h.state.bootstrap; b != nil {
		if migrationID == "" {
			return nil, ErrMissingMigrationID
		}
		b.Add(migrationID, ops)
		return nil, nil
	}
	return h.engine.Translate(ops)
}

func (h *hooks) ExecuteStatements(_ context.Context, stmts []migration.Statement, migrationID string) error {
	h.state.appendStatements(stmts, migrationID)
	return nil
}

func (h *hooks) Seed(context.Context) error {
	return nil
}
