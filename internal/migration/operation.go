package migration

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Kind identifies a schema operation.
type Kind string

const (
	KindCreateTable Kind = "create_table"
	KindDropTable   Kind = "drop_table"
	KindRenameTable Kind = "rename_table"
	KindAddColumn   Kind = "add_column"
	KindDropColumn  Kind = "drop_column"
	KindCreateIndex Kind = "create_index"
	KindDropIndex   Kind = "drop_index"
	KindSQL         Kind = "sql"

	// History bookkeeping, produced by the migrator itself.
	KindCreateHistory Kind = "create_history"
	KindDropHistory   Kind = "drop_history"
	KindInsertHistory Kind = "insert_history"
	KindDeleteHistory Kind = "delete_history"
)

var userKinds = map[Kind]bool{
	KindCreateTable: true,
	KindDropTable:   true,
	KindRenameTable: true,
	KindAddColumn:   true,
	KindDropColumn:  true,
	KindCreateIndex: true,
	KindDropIndex:   true,
	KindSQL:         true,
}

var ErrInvalidOperation = errors.New("invalid operation")

// Column describes a table column in create_table / add_column.
type Column struct {
	Name       string `mapstructure:"name"`
	Type       string `mapstructure:"type"`
	Nullable   bool   `mapstructure:"nullable"`
	PrimaryKey bool   `mapstructure:"primary_key"`
	Unique     bool   `mapstructure:"unique"`
	Default    string `mapstructure:"default"`
}

// Operation is a single schema change. Only the fields relevant to Kind are set.
type Operation struct {
	Kind    Kind     `mapstructure:"kind"`
	Table   string   `mapstructure:"table"`
	NewName string   `mapstructure:"new_name"`
	Columns []Column `mapstructure:"columns"`
	Column  Column   `mapstructure:"column"`
	Index   string   `mapstructure:"index"`
	Unique  bool     `mapstructure:"unique"`
	SQL     string   `mapstructure:"sql"`
	// BatchTerminator overrides the dialect separator for raw sql.
	BatchTerminator string `mapstructure:"batch_terminator"`

	// Set on history operations.
	MigrationID string `mapstructure:"-"`
	ContextKey  string `mapstructure:"-"`
}

// Statement is a ready to run SQL text plus an optional batch separator.
type Statement struct {
	SQL             string
	BatchTerminator string
}

// Translator turns operations into dialect specific statements.
type Translator interface {
	Translate(ops []Operation) ([]Statement, error)
}

func decodeOperations(raw []map[string]interface{}) ([]Operation, error) {
	ops := make([]Operation, 0, len(raw))
	for i, m := range raw {
		var op Operation
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &op,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if err := op.validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (op Operation) validate() error {
	if !userKinds[op.Kind] {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, op.Kind)
	}
	switch op.Kind {
	case KindSQL:
		return nil
	case KindRenameTable:
		if op.Table == "" || op.NewName == "" {
			return fmt.Errorf("%w: rename_table needs table and new_name", ErrInvalidOperation)
		}
	case KindCreateTable:
		if op.Table == "" || len(op.Columns) == 0 {
			return fmt.Errorf("%w: create_table needs table and columns", ErrInvalidOperation)
		}
	case KindAddColumn, KindDropColumn:
		if op.Table == "" || op.Column.Name == "" {
			return fmt.Errorf("%w: %s needs table and column.name", ErrInvalidOperation, op.Kind)
		}
	case KindCreateIndex:
		if op.Table == "" || op.Index == "" || len(op.Columns) == 0 {
			return fmt.Errorf("%w: create_index needs table, index and columns", ErrInvalidOperation)
		}
	case KindDropIndex:
		if op.Index == "" {
			return fmt.Errorf("%w: drop_index needs index", ErrInvalidOperation)
		}
	default:
		if op.Table == "" {
			return fmt.Errorf("%w: %s needs table", ErrInvalidOperation, op.Kind)
		}
	}
	return nil
}

func cloneOperations(ops []Operation) []Operation {
	out := make([]Operation, len(ops), len(ops)+1)
	copy(out, ops)
	return out
}
