package script

import "github.com/loykin/migscript/internal/migration"

// BootstrapSet collects the operations of every migration applied to an empty
// database so they can be translated as a single batch. Keys keep insertion order.
type BootstrapSet struct {
	order []string
	ops   map[string][]migration.Operation
}

// NewBootstrapSet returns a set seeded with the baseline operations under
// migration.InitialDatabase.
func NewBootstrapSet(baseline []migration.Operation) *BootstrapSet {
	b := &BootstrapSet{ops: make(map[string][]migration.Operation)}
	b.Add(migration.InitialDatabase, baseline)
	return b
}

// Add appends ops under id.
func (b *BootstrapSet) Add(id string, ops []migration.Operation) {
	if _, ok := b.ops[id]; !ok {
		b.order = append(b.order, id)
	}
	b.ops[id] = append(b.ops[id], ops...)
}

// IDs returns the migration ids in the order they were first added.
func (b *BootstrapSet) IDs() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *BootstrapSet) Len() int {
	return len(b.order)
}

// Merged flattens all operations in insertion order.
func (b *BootstrapSet) Merged() []migration.Operation {
	var out []migration.Operation
	for _, id := range b.order {
		out = append(out, b.ops[id]...)
	}
	return out
}
