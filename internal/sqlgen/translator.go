// Package sqlgen renders migration operations as dialect specific SQL.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/migscript/internal/constants"
	"github.com/loykin/migscript/internal/migration"
	"github.com/loykin/migscript/internal/util"
)

var ErrUnsupportedOperation = errors.New("unsupported operation")

// Dialect is the subset of a store dialect needed to render DDL.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	ColumnType(t string) string
	BatchTerminator() string
}

// Translator renders operations for one dialect and history table.
type Translator struct {
	dialect      Dialect
	historyTable string
}

var _ migration.Translator = (*Translator)(nil)

func New(d Dialect, historyTable string) *Translator {
	return &Translator{
		dialect:      d,
		historyTable: util.TrimWithDefault(historyTable, constants.DefaultHistoryTable),
	}
}

// Translate renders ops in order. Each operation yields exactly one statement.
func (t *Translator) Translate(ops []migration.Operation) ([]migration.Statement, error) {
	out := make([]migration.Statement, 0, len(ops))
	for i, op := range ops {
		sql, err := t.render(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Kind, err)
		}
		term := t.dialect.BatchTerminator()
		if op.Kind == migration.KindSQL && op.BatchTerminator != "" {
			term = op.BatchTerminator
		}
		out = append(out, migration.Statement{SQL: sql, BatchTerminator: term})
	}
	return out, nil
}

func (t *Translator) render(op migration.Operation) (string, error) {
	q := t.dialect.QuoteIdent
	switch op.Kind {
	case migration.KindCreateTable:
		return t.createTable(op.Table, op.Columns), nil
	case migration.KindDropTable:
		return fmt.Sprintf("DROP TABLE %s;", q(op.Table)), nil
	case migration.KindRenameTable:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", q(op.Table), q(op.NewName)), nil
	case migration.KindAddColumn:
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", q(op.Table), t.columnDef(op.Column, false)), nil
	case migration.KindDropColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", q(op.Table), q(op.Column.Name)), nil
	case migration.KindCreateIndex:
		unique := ""
		if op.Unique {
			unique = "UNIQUE "
		}
		return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);", unique, q(op.Index), q(op.Table), t.columnList(op.Columns)), nil
	case migration.KindDropIndex:
		return fmt.Sprintf("DROP INDEX %s;", q(op.Index)), nil
	case migration.KindSQL:
		return strings.TrimSpace(op.SQL), nil
	case migration.KindCreateHistory:
		return t.createTable(t.historyTable, []migration.Column{
			{Name: constants.HistoryColumnMigrationID, Type: "string", PrimaryKey: true},
			{Name: constants.HistoryColumnContextKey, Type: "string", PrimaryKey: true},
			{Name: constants.HistoryColumnAppliedAt, Type: "timestamp", Default: "CURRENT_TIMESTAMP"},
		}), nil
	case migration.KindDropHistory:
		return fmt.Sprintf("DROP TABLE %s;", q(t.historyTable)), nil
	case migration.KindInsertHistory:
		return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s);",
			q(t.historyTable), q(constants.HistoryColumnMigrationID), q(constants.HistoryColumnContextKey),
			quoteLiteral(op.MigrationID), quoteLiteral(op.ContextKey)), nil
	case migration.KindDeleteHistory:
		return fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s;",
			q(t.historyTable), q(constants.HistoryColumnMigrationID), quoteLiteral(op.MigrationID),
			q(constants.HistoryColumnContextKey), quoteLiteral(op.ContextKey)), nil
	default:
		return "", fmt.Errorf("%w: %q for %s", ErrUnsupportedOperation, op.Kind, t.dialect.Name())
	}
}

func (t *Translator) createTable(table string, cols []migration.Column) string {
	var pk []string
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	inlinePK := len(pk) == 1

	lines := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		lines = append(lines, "    "+t.columnDef(c, inlinePK))
	}
	if len(pk) > 1 {
		quoted := make([]string, len(pk))
		for i, name := range pk {
			quoted[i] = t.dialect.QuoteIdent(name)
		}
		lines = append(lines, "    PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", t.dialect.QuoteIdent(table), strings.Join(lines, ",\n"))
}

func (t *Translator) columnDef(c migration.Column, inlinePK bool) string {
	var b strings.Builder
	b.WriteString(t.dialect.QuoteIdent(c.Name))
	b.WriteByte(' ')
	b.WriteString(t.dialect.ColumnType(util.TrimWithDefault(c.Type, "text")))
	if !c.Nullable || c.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if c.PrimaryKey && inlinePK {
		b.WriteString(" PRIMARY KEY")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	if d, ok := util.TrimEmptyCheck(c.Default); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(d)
	}
	return b.String()
}

func (t *Translator) columnList(cols []migration.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = t.dialect.QuoteIdent(c.Name)
	}
	return strings.Join(names, ", ")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
