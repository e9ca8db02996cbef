package script

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/migscript/internal/migration"
)

const (
	DirectionUp   = "Upward"
	DirectionDown = "Downward"
)

// header holds the values printed in the overall script header.
type header struct {
	ContextType string
	ContextKey  string
	Direction   string
	Source      string
	Target      string
}

// State is the mutable state of a single script request. It must not be
// shared between requests.
type State struct {
	buf        bytes.Buffer
	headerMark int

	migrations int
	statements int
	// lines counts emitted statement lines; the footer reports statements instead.
	lines int

	now       func() time.Time
	started   time.Time
	bootstrap *BootstrapSet
}

func newState(now func() time.Time) *State {
	return &State{now: now, started: now()}
}

func (s *State) writeLine(line string) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
}

func (s *State) writeHeader(h header) {
	s.writeLine("-- Generated Database Migration Script --")
	s.writeLine("/*")
	s.writeLine("    ContextType: " + h.ContextType)
	s.writeLine("    Generated At: " + s.started.UTC().Format(time.RFC3339))
	s.writeLine("    ContextKey: " + h.ContextKey)
	s.writeLine("    Direction: " + h.Direction)
	s.writeLine("    SourceMigrationId: " + h.Source)
	s.writeLine("    TargetMigrationId: " + h.Target)
	s.writeLine("*/")
	s.writeLine("-- START Migration Script --")
	s.writeLine("")
	s.headerMark = s.buf.Len()
}

// resetToHeader drops everything written after the overall header.
func (s *State) resetToHeader() {
	s.buf.Truncate(s.headerMark)
}

// appendStatements writes stmts and updates the counters. Blank statements
// produce no text but are still counted.
func (s *State) appendStatements(stmts []migration.Statement, migrationID string) {
	s.migrations++
	s.statements += len(stmts)

	wrap := len(stmts) > 0 && migrationID != ""
	if wrap {
		s.writeLine(fmt.Sprintf("-- START Migration '%s' Script --", migrationID))
	}
	for _, st := range stmts {
		if strings.TrimSpace(st.SQL) == "" {
			continue
		}
		if st.BatchTerminator != "" && s.buf.Len() > 0 {
			s.writeLine(st.BatchTerminator)
			s.writeLine("")
		}
		s.writeLine(st.SQL)
		s.lines++
	}
	if wrap {
		s.writeLine(fmt.Sprintf("-- END Migration %s Script --", migrationID))
		s.writeLine("")
		s.writeLine("")
	}
}

func (s *State) writeFooter() {
	s.writeLine("-- END Migration Script --")
	s.writeLine("/*")
	s.writeLine("    Script Generation Duration: " + s.now().Sub(s.started).String())
	s.writeLine(fmt.Sprintf("    Total Migrations: %d", s.migrations))
	s.writeLine(fmt.Sprintf("    Total Statements: %d", s.statements))
	s.writeLine("*/")
}

// Migrations returns the number of execution passes recorded so far.
func (s *State) Migrations() int { return s.migrations }

// Statements returns the number of statements passed to execution so far.
func (s *State) Statements() int { return s.statements }

// Lines returns the number of non-blank statements written.
func (s *State) Lines() int { return s.lines }

func (s *State) String() string {
	return s.buf.String()
}
