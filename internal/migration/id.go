package migration

import (
	"sort"
	"strings"

	"github.com/loykin/migscript/internal/constants"
)

// InitialDatabase denotes a database with no migrations applied.
const InitialDatabase = constants.InitialDatabase

// CompareIDs orders migration ids by plain byte-wise comparison.
func CompareIDs(a, b string) int {
	return strings.Compare(a, b)
}

// SortAscending sorts ids in place, oldest first.
func SortAscending(ids []string) {
	sort.Strings(ids)
}

// SortDescending sorts ids in place, newest first.
func SortDescending(ids []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
}

// IsAutomaticName reports whether a migration reference carries the automatic suffix.
func IsAutomaticName(name string) bool {
	return strings.HasSuffix(strings.TrimSpace(name), constants.AutomaticMigrationSuffix)
}

// NamePart returns the human name of an id: "20240101_add_users" -> "add_users".
func NamePart(id string) string {
	if i := strings.IndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}
