package migscript

import (
	"fmt"
	"strings"

	imig "github.com/loykin/migscript/internal/migration"
)

// Status is the applied state of the local migrations.
type Status struct {
	// Current is the newest applied migration, or InitialDatabase.
	Current string
	Applied []string
	Pending []string
	// Unknown lists applied ids with no local migration file.
	Unknown []string
}

func newStatus(local, applied []string) Status {
	s := Status{Current: InitialDatabase, Applied: applied}
	seen := make(map[string]bool, len(applied))
	for _, id := range applied {
		seen[id] = true
		if imig.CompareIDs(id, s.Current) > 0 {
			s.Current = id
		}
	}
	known := make(map[string]bool, len(local))
	for _, id := range local {
		known[id] = true
		if !seen[id] {
			s.Pending = append(s.Pending, id)
		}
	}
	for _, id := range applied {
		if !known[id] {
			s.Unknown = append(s.Unknown, id)
		}
	}
	return s
}

// FormatHuman returns a multiline summary for CLI output.
func (s Status) FormatHuman() string {
	var b strings.Builder
	fmt.Fprintf(&b, "current: %s\n", s.Current)
	fmt.Fprintf(&b, "applied: [%s]\n", strings.Join(s.Applied, " "))
	fmt.Fprintf(&b, "pending: [%s]\n", strings.Join(s.Pending, " "))
	if len(s.Unknown) > 0 {
		fmt.Fprintf(&b, "unknown: [%s]\n", strings.Join(s.Unknown, " "))
	}
	return b.String()
}
