package ghost

import "sync"

// Key identifies one ghost file: the physical path it's buffering writes
// for, plus the normalized virtual path a caller opened it through. Two
// different virtual paths that collapse to the same physical object (e.g.
// the same file reachable through two different tag chains) get distinct
// ghost files, so each caller's in-progress edit stays private to the path
// it was opened through until Apply commits it back.
type Key struct {
	PhysicalPath string
	VirtualPath  string
}

type entry struct {
	file     *File
	refcount int
}

// Table is the process-wide ghost-file registry: every currently-open
// tagged-object write session is tracked here, refcounted so that two
// concurrent opens of the same (physical, virtual) pair share one File
// and its buffered writes, and the File is only released once the last
// opener closes it.
type Table struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewTable returns an empty ghost-file table.
func NewTable() *Table {
	return &Table{entries: make(map[Key]*entry)}
}

// Acquire returns the File for key, opening one against physical path
// k.PhysicalPath if this is the first reference, and incrementing the
// refcount either way. Each Acquire must be matched by exactly one
// Release.
func (t *Table) Acquire(key Key) (*File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		e.refcount++
		return e.file, nil
	}

	f, err := Open(key.PhysicalPath)
	if err != nil {
		return nil, err
	}
	t.entries[key] = &entry{file: f, refcount: 1}
	return f, nil
}

// Has reports whether a ghost file is currently registered for key.
func (t *Table) Has(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	return ok && e.refcount > 0
}

// Get returns the File registered for key, if any, without changing its
// refcount.
func (t *Table) Get(key Key) (*File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return e.file, true
}

// Release decrements key's refcount. Once it reaches zero the File is
// released and removed from the table. Releasing a key with no
// outstanding reference is a no-op.
func (t *Table) Release(key Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	e.refcount--
	if e.refcount > 0 {
		return nil
	}
	delete(t.entries, key)
	return e.file.Release()
}
