package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/migscript/internal/common"
)

var (
	ErrMigrationNotFound  = errors.New("migration not found")
	ErrAmbiguousMigration = errors.New("ambiguous migration name")
	ErrTargetRequired     = errors.New("target migration is required")
	ErrTargetBehind       = errors.New("target migration is older than the last applied migration")
)

// Hooks are the side effects performed while traversing migrations. The live
// implementation talks to a database; other implementations may divert them.
type Hooks interface {
	EnsureDatabase(ctx context.Context) error
	HistoryExists(ctx context.Context) (bool, error)
	GenerateStatements(ctx context.Context, migrationID string, ops []Operation) ([]Statement, error)
	ExecuteStatements(ctx context.Context, stmts []Statement, migrationID string) error
	Seed(ctx context.Context) error
}

// History lists migration ids already recorded in the history table.
type History interface {
	ListApplied(ctx context.Context) ([]string, error)
}

type Options struct {
	Translator Translator
	History    History
	Seed       []Operation
	ContextKey string
	Logger     *common.Logger
}

// Migrator knows the local migrations and drives upgrade/downgrade traversals
// through a set of Hooks.
type Migrator struct {
	migrations []Migration
	byID       map[string]*Migration
	translator Translator
	history    History
	seed       []Operation
	contextKey string
	logger     *common.Logger
}

func New(migrations []Migration, opts Options) (*Migrator, error) {
	if opts.Translator == nil {
		return nil, errors.New("migrator: translator is required")
	}
	ms := make([]Migration, len(migrations))
	copy(ms, migrations)
	sortMigrations(ms)

	byID := make(map[string]*Migration, len(ms))
	for i := range ms {
		id := ms[i].ID
		if id == "" || CompareIDs(id, InitialDatabase) <= 0 {
			return nil, fmt.Errorf("migrator: invalid migration id %q (must sort after %q)", id, InitialDatabase)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("migrator: duplicate migration id %s", id)
		}
		byID[id] = &ms[i]
	}
	return &Migrator{
		migrations: ms,
		byID:       byID,
		translator: opts.Translator,
		history:    opts.History,
		seed:       opts.Seed,
		contextKey: strings.TrimSpace(opts.ContextKey),
		logger:     common.OrDefault(opts.Logger).WithComponent("migrator"),
	}, nil
}

// NewFromDir loads migrations and the optional seed file from dir.
func NewFromDir(dir string, opts Options) (*Migrator, error) {
	ms, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if opts.Seed == nil {
		seed, err := LoadSeed(dir)
		if err != nil {
			return nil, err
		}
		opts.Seed = seed
	}
	return New(ms, opts)
}

// WithHistory returns a copy of m reading applied migrations from h.
func (m *Migrator) WithHistory(h History) *Migrator {
	c := *m
	c.history = h
	return &c
}

// Migrations returns the local migrations, ascending.
func (m *Migrator) Migrations() []Migration {
	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	return out
}

// LocalMigrationIDs returns all local migration ids, ascending.
func (m *Migrator) LocalMigrationIDs() []string {
	ids := make([]string, len(m.migrations))
	for i, mig := range m.migrations {
		ids[i] = mig.ID
	}
	return ids
}

// ResolveMigrationID maps a user supplied reference to a migration id. The
// reference may be the full id, the initial database sentinel, or the name
// part of exactly one id.
func (m *Migrator) ResolveMigrationID(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == InitialDatabase {
		return InitialDatabase, nil
	}
	if _, ok := m.byID[name]; ok {
		return name, nil
	}
	var found []string
	for _, mig := range m.migrations {
		if NamePart(mig.ID) == name {
			found = append(found, mig.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrMigrationNotFound, name)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %s", ErrAmbiguousMigration, name, strings.Join(found, ", "))
	}
}

// IsAutomaticMigration reports whether name refers to an automatically generated migration.
func (m *Migrator) IsAutomaticMigration(name string) bool {
	if IsAutomaticName(name) {
		return true
	}
	id, err := m.ResolveMigrationID(name)
	if err != nil || id == InitialDatabase {
		return false
	}
	return m.byID[id].Automatic
}

// BaselineOperations creates the schema objects needed before any migration runs.
func (m *Migrator) BaselineOperations() []Operation {
	return []Operation{{Kind: KindCreateHistory}}
}

// Translate renders operations with the configured dialect.
func (m *Migrator) Translate(ops []Operation) ([]Statement, error) {
	return m.translator.Translate(ops)
}

// SeedOperations returns the seed operations loaded for this migrator.
func (m *Migrator) SeedOperations() []Operation {
	return m.seed
}

// PlanUpdate computes the pending migrations for a forward update to target
// (empty = latest). sourceID is the last applied migration, or InitialDatabase.
func (m *Migrator) PlanUpdate(ctx context.Context, target string, h Hooks) (pending []string, targetID, sourceID string, err error) {
	p, err := m.planUpdate(ctx, target, h)
	if err != nil {
		return nil, "", "", err
	}
	return p.pending, p.targetID, p.sourceID, nil
}

type updatePlan struct {
	pending  []string
	targetID string
	sourceID string
	// historyExists is false when the baseline has never been applied
	historyExists bool
}

func (m *Migrator) planUpdate(ctx context.Context, target string, h Hooks) (updatePlan, error) {
	var p updatePlan
	if err := h.EnsureDatabase(ctx); err != nil {
		return p, fmt.Errorf("ensure database: %w", err)
	}
	if strings.TrimSpace(target) != "" {
		id, err := m.ResolveMigrationID(target)
		if err != nil {
			return p, err
		}
		p.targetID = id
	}
	exists, err := h.HistoryExists(ctx)
	if err != nil {
		return p, fmt.Errorf("history probe: %w", err)
	}
	p.historyExists = exists

	p.sourceID = InitialDatabase
	applied := map[string]bool{}
	if exists && m.history != nil {
		ids, err := m.history.ListApplied(ctx)
		if err != nil {
			return p, fmt.Errorf("list applied: %w", err)
		}
		for _, id := range ids {
			applied[id] = true
			if CompareIDs(id, p.sourceID) > 0 {
				p.sourceID = id
			}
		}
	}
	for _, id := range m.LocalMigrationIDs() {
		if applied[id] {
			continue
		}
		if p.targetID != "" && CompareIDs(id, p.targetID) > 0 {
			continue
		}
		p.pending = append(p.pending, id)
	}
	return p, nil
}

// Upgrade applies pending migrations in order. targetID and sourceID are used
// for logging only.
func (m *Migrator) Upgrade(ctx context.Context, pending []string, targetID, sourceID string, h Hooks) error {
	log := m.logger.WithDirection("up")
	log.Info("upgrading", "source", sourceID, "target", targetID, "pending", len(pending))
	for _, id := range pending {
		mig, ok := m.byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMigrationNotFound, id)
		}
		ops := append(cloneOperations(mig.Up), Operation{Kind: KindInsertHistory, MigrationID: id, ContextKey: m.contextKey})
		if err := m.apply(ctx, id, ops, h); err != nil {
			return err
		}
		log.Debug("migration applied", "migration", id)
	}
	return h.Seed(ctx)
}

// Downgrade reverts migrations in the order given. InitialDatabase reverts the
// baseline operations.
func (m *Migrator) Downgrade(ctx context.Context, ids []string, h Hooks) error {
	log := m.logger.WithDirection("down")
	log.Info("downgrading", "count", len(ids))
	for _, id := range ids {
		var ops []Operation
		if id == InitialDatabase {
			ops = []Operation{{Kind: KindDropHistory}}
		} else {
			mig, ok := m.byID[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMigrationNotFound, id)
			}
			ops = append(cloneOperations(mig.Down), Operation{Kind: KindDeleteHistory, MigrationID: id, ContextKey: m.contextKey})
		}
		if err := m.apply(ctx, id, ops, h); err != nil {
			return err
		}
		log.Debug("migration reverted", "migration", id)
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, id string, ops []Operation, h Hooks) error {
	stmts, err := h.GenerateStatements(ctx, id, ops)
	if err != nil {
		return fmt.Errorf("migration %s: generate: %w", id, err)
	}
	if err := h.ExecuteStatements(ctx, stmts, id); err != nil {
		return fmt.Errorf("migration %s: execute: %w", id, err)
	}
	return nil
}

// Update brings the database forward to target (empty = latest). The
// baseline is applied only when the history table does not exist yet; an
// existing but empty table is reused.
func (m *Migrator) Update(ctx context.Context, target string, h Hooks) error {
	p, err := m.planUpdate(ctx, target, h)
	if err != nil {
		return err
	}
	if p.targetID != "" && CompareIDs(p.targetID, p.sourceID) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrTargetBehind, p.targetID, p.sourceID)
	}
	if !p.historyExists {
		if err := m.apply(ctx, InitialDatabase, m.BaselineOperations(), h); err != nil {
			return err
		}
	}
	return m.Upgrade(ctx, p.pending, p.targetID, p.sourceID, h)
}

// Rollback reverts applied migrations newer than target. Rolling back to
// InitialDatabase also removes the history table.
func (m *Migrator) Rollback(ctx context.Context, target string, h Hooks) error {
	if strings.TrimSpace(target) == "" {
		return ErrTargetRequired
	}
	targetID, err := m.ResolveMigrationID(target)
	if err != nil {
		return err
	}
	if err := h.EnsureDatabase(ctx); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	exists, err := h.HistoryExists(ctx)
	if err != nil {
		return fmt.Errorf("history probe: %w", err)
	}
	if !exists || m.history == nil {
		m.logger.Info("no migration history; nothing to roll back")
		return nil
	}
	applied, err := m.history.ListApplied(ctx)
	if err != nil {
		return fmt.Errorf("list applied: %w", err)
	}
	var ids []string
	for _, id := range applied {
		if CompareIDs(id, targetID) > 0 {
			ids = append(ids, id)
		}
	}
	SortDescending(ids)
	if targetID == InitialDatabase {
		ids = append(ids, InitialDatabase)
	}
	return m.Downgrade(ctx, ids, h)
}
