// Package script renders migration traversals as SQL text instead of applying
// them. A Scripter drives the migration engine with hooks that buffer every
// generated statement into a single script.
package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/migscript/internal/common"
	"github.com/loykin/migscript/internal/constants"
	"github.com/loykin/migscript/internal/migration"
	"github.com/loykin/migscript/internal/util"
)

// Engine is the migration engine a Scripter wraps. *migration.Migrator
// satisfies it.
type Engine interface {
	LocalMigrationIDs() []string
	ResolveMigrationID(name string) (string, error)
	IsAutomaticMigration(name string) bool
	BaselineOperations() []migration.Operation
	Translate(ops []migration.Operation) ([]migration.Statement, error)
	PlanUpdate(ctx context.Context, target string, h migration.Hooks) (pending []string, targetID, sourceID string, err error)
	Upgrade(ctx context.Context, pending []string, targetID, sourceID string, h migration.Hooks) error
	Downgrade(ctx context.Context, ids []string, h migration.Hooks) error
}

var _ Engine = (*migration.Migrator)(nil)

type Options struct {
	ContextType string
	ContextKey  string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *common.Logger
}

// Scripter generates upgrade and downgrade scripts. Each call builds its own
// State, so a Scripter can be reused; the wrapped engine must tolerate the
// calls it receives.
type Scripter struct {
	engine      Engine
	contextType string
	contextKey  string
	now         func() time.Time
	logger      *common.Logger
}

func New(engine Engine, opts Options) *Scripter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scripter{
		engine:      engine,
		contextType: util.TrimWithDefault(opts.ContextType, constants.DefaultContextType),
		contextKey:  strings.TrimSpace(opts.ContextKey),
		now:         now,
		logger:      common.OrDefault(opts.Logger).WithComponent("script"),
	}
}

// Script returns the script moving the schema from source to target.
//
// An empty source starts from an empty database and yields a single
// consolidated creation script. An empty target means the latest migration.
// When source is newer than target the result is the downward script for the
// same pair, identical to ScriptDown(source, target).
func (s *Scripter) Script(ctx context.Context, source, target string) (string, error) {
	if err := s.checkAutomatic(source, target); err != nil {
		return "", err
	}
	if strings.TrimSpace(source) == "" {
		return s.scriptFromEmpty(ctx, target)
	}

	sourceID, err := s.engine.ResolveMigrationID(source)
	if err != nil {
		return "", err
	}
	var targetID string
	if strings.TrimSpace(target) != "" {
		if targetID, err = s.engine.ResolveMigrationID(target); err != nil {
			return "", err
		}
		if migration.CompareIDs(sourceID, targetID) > 0 {
			s.logger.Debug("source is newer than target; generating downward script",
				"source", sourceID, "target", targetID)
			return s.scriptDown(ctx, sourceID, targetID)
		}
	}

	var pending []string
	for _, id := range s.engine.LocalMigrationIDs() {
		if migration.CompareIDs(id, sourceID) <= 0 {
			continue
		}
		if targetID != "" && migration.CompareIDs(id, targetID) > 0 {
			continue
		}
		pending = append(pending, id)
	}
	return s.scriptUp(ctx, pending, targetID, sourceID)
}

// ScriptDown returns the script reverting every migration between the two
// bounds, newest first. Reverting to migration.InitialDatabase also removes
// the baseline schema. The bounds may be given in either order.
func (s *Scripter) ScriptDown(ctx context.Context, source, target string) (string, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return "", ErrDowngradeBoundsRequired
	}
	if err := s.checkAutomatic(source, target); err != nil {
		return "", err
	}
	sourceID, err := s.engine.ResolveMigrationID(source)
	if err != nil {
		return "", err
	}
	targetID, err := s.engine.ResolveMigrationID(target)
	if err != nil {
		return "", err
	}
	return s.scriptDown(ctx, sourceID, targetID)
}

func (s *Scripter) checkAutomatic(names ...string) error {
	for _, name := range names {
		if util.IsBlank(name) {
			continue
		}
		if s.engine.IsAutomaticMigration(name) {
			return fmt.Errorf("%w: %s", ErrAutomaticMigrationNotScriptable, name)
		}
	}
	return nil
}

func (s *Scripter) scriptFromEmpty(ctx context.Context, target string) (string, error) {
	st := newState(s.now)
	h := &hooks{state: st, engine: s.engine}
	pending, targetID, sourceID, err := s.engine.PlanUpdate(ctx, target, h)
	if err != nil {
		return "", err
	}
	return s.runUp(ctx, st, h, pending, targetID, sourceID)
}

func (s *Scripter) scriptUp(ctx context.Context, pending []string, targetID, sourceID string) (string, error) {
	st := newState(s.now)
	return s.runUp(ctx, st, &hooks{state: st, engine: s.engine}, pending, targetID, sourceID)
}

func (s *Scripter) runUp(ctx context.Context, st *State, h *hooks, pending []string, targetID, sourceID string) (string, error) {
	log := s.logger.WithDirection("up")
	st.writeHeader(s.header(DirectionUp, sourceID, targetID))

	if sourceID == migration.InitialDatabase {
		st.bootstrap = NewBootstrapSet(s.engine.BaselineOperations())
	}
	if err := s.engine.Upgrade(ctx, pending, targetID, sourceID, h); err != nil {
		log.Debug("script generation failed", "error", err)
		return "", err
	}

	if b := st.bootstrap; b != nil {
		st.bootstrap = nil
		log.Debug("consolidating bootstrap", "migrations", b.Len())
		st.resetToHeader()
		st.writeLine("-- START Full Migration Script --")
		stmts, err := h.GenerateStatements(ctx, "", b.Merged())
		if err != nil {
			return "", err
		}
		if err := h.ExecuteStatements(ctx, stmts, ""); err != nil {
			return "", err
		}
		st.writeLine("-- END Full Migration Script --")
		st.writeLine("")
	}
	return s.finish(log, st), nil
}

func (s *Scripter) scriptDown(ctx context.Context, sourceID, targetID string) (string, error) {
	log := s.logger.WithDirection("down")
	lo, hi := targetID, sourceID
	if migration.CompareIDs(lo, hi) > 0 {
		lo, hi = hi, lo
	}

	var ids []string
	for _, id := range s.engine.LocalMigrationIDs() {
		if migration.CompareIDs(id, lo) >= 0 && migration.CompareIDs(id, hi) <= 0 {
			ids = append(ids, id)
		}
	}
	if lo == migration.InitialDatabase {
		ids = append(ids, migration.InitialDatabase)
	}
	migration.SortDescending(ids)

	st := newState(s.now)
	st.writeHeader(s.header(DirectionDown, hi, lo))
	if err := s.engine.Downgrade(ctx, ids, &hooks{state: st, engine: s.engine}); err != nil {
		log.Debug("script generation failed", "error", err)
		return "", err
	}
	return s.finish(log, st), nil
}

func (s *Scripter) finish(log *common.Logger, st *State) string {
	st.writeFooter()
	log.Debug("script generated",
		"migrations", st.Migrations(),
		"statements", st.Statements(),
		"lines", st.Lines())
	return st.String()
}

func (s *Scripter) header(direction, sourceID, targetID string) header {
	return header{
		ContextType: s.contextType,
		ContextKey:  s.contextKey,
		Direction:   direction,
		Source:      sourceLabel(sourceID),
		Target:      targetLabel(targetID),
	}
}

func sourceLabel(id string) string {
	if id == "" || id == migration.InitialDatabase {
		return constants.InitialLabel
	}
	return id
}

func targetLabel(id string) string {
	switch id {
	case "":
		return constants.LatestLabel
	case migration.InitialDatabase:
		return constants.InitialLabel
	}
	return id
}
