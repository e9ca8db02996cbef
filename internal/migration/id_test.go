package migration

import (
	"reflect"
	"testing"
)

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"001_init", "002_users", -1},
		{"002_users", "001_init", 1},
		{"001_init", "001_init", 0},
		{InitialDatabase, "001_init", -1},
		// purely textual: no numeric parsing
		{"10_late", "9_early", -1},
	}
	for _, tt := range tests {
		if got := CompareIDs(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareIDs(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortAscendingDescending(t *testing.T) {
	ids := []string{"003_c", InitialDatabase, "001_a", "002_b"}
	SortAscending(ids)
	if want := []string{InitialDatabase, "001_a", "002_b", "003_c"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("SortAscending = %v, want %v", ids, want)
	}
	SortDescending(ids)
	if want := []string{"003_c", "002_b", "001_a", InitialDatabase}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("SortDescending = %v, want %v", ids, want)
	}
}

func TestIsAutomaticName(t *testing.T) {
	if !IsAutomaticName("20240101_AutomaticMigration") {
		t.Error("expected automatic suffix to be detected")
	}
	if IsAutomaticName("20240101_add_users") {
		t.Error("named migration reported as automatic")
	}
}

func TestNamePart(t *testing.T) {
	tests := map[string]string{
		"20240101120000_add_users": "add_users",
		"001_init_schema":          "init_schema",
		"plain":                    "plain",
	}
	for in, want := range tests {
		if got := NamePart(in); got != want {
			t.Errorf("NamePart(%q) = %q, want %q", in, got, want)
		}
	}
}
