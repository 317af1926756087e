// Package symbol implements the kernel symbol table: a linear
// name->address list the dynamic loader consults to resolve
// undefined external symbols at load time.
package symbol

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
)

// entry is one exported symbol. Equality for unexport purposes is by
// address only, matching the original table's Entry::eq.
type entry struct {
	name string
	addr uint32
}

// Table is the kernel's symbol table.
type Table struct {
	mu      sync.Mutex
	entries linkedlist.List[entry]
	dbg     *debug.Debug
}

// New returns an empty Table.
func New(dbg *debug.Debug) *Table {
	return &Table{dbg: dbg}
}

// Setup logs readiness.
func (t *Table) Setup() {
	if t.dbg != nil {
		t.dbg.Info("Symbol setup done!")
	}
}

// Exit drops every entry.
func (t *Table) Exit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries.Clear()
}

// Export appends a name->addr binding. Names are not deduplicated:
// the table is a linear list, and Search returns the first match.
func (t *Table) Export(addr uint32, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries.PushBack(entry{name: name, addr: addr})
}

// Unexport removes the first entry whose address matches addr.
func (t *Table) Unexport(addr uint32, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries.RemoveMatch(func(e entry) bool { return e.addr == addr })
}

// Search returns the address bound to name, or 0 if name is unknown.
func (t *Table) Search(name string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries.Find(func(e entry) bool { return e.name == name }); ok {
		return e.addr
	}
	return 0
}
