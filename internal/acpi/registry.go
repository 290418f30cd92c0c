package acpi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrTableExists = errors.New("acpi: table already registered")

// TableSet is an in-memory registry keyed by table ID.
type TableSet struct {
	mu     sync.Mutex
	tables map[TableID]Table
}

func NewTableSet() *TableSet {
	return &TableSet{tables: make(map[TableID]Table)}
}

func (s *TableSet) Register(t Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tables[t.ID]; ok && old.Loaded {
		return fmt.Errorf("%w: %s", ErrTableExists, t.ID)
	}
	s.tables[t.ID] = t
	return nil
}

// Lookup returns the table registered under id.
func (s *TableSet) Lookup(id TableID) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[id]
	return t, ok
}

// Release drops a loaded table so its slot can be reused.
func (s *TableSet) Release(id TableID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables, id)
}

// IDs returns the registered table IDs in sorted order.
func (s *TableSet) IDs() []TableID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]TableID, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MemoryRegistry places tables back to back, 8-byte aligned, in a region of
// a physical address space such as guest RAM.
type MemoryRegistry struct {
	mem  io.WriterAt
	base uint64
	size uint64
	next uint64

	addrs map[TableID]uint64
}

func NewMemoryRegistry(mem io.WriterAt, base, size uint64) *MemoryRegistry {
	return &MemoryRegistry{
		mem:   mem,
		base:  base,
		size:  size,
		addrs: make(map[TableID]uint64),
	}
}

func (r *MemoryRegistry) Register(t Table) error {
	if _, ok := r.addrs[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrTableExists, t.ID)
	}
	length := uint64(len(t.Data))
	if r.next+length > r.size {
		return fmt.Errorf("table %s requires %d bytes, %d of %d left", t.ID, length, r.size-r.next, r.size)
	}

	addr := r.base + r.next
	if _, err := r.mem.WriteAt(t.Data, int64(addr)); err != nil {
		return fmt.Errorf("write %s: %w", t.ID, err)
	}

	r.addrs[t.ID] = addr
	r.next += length
	if pad := r.next % 8; pad != 0 {
		r.next += 8 - pad
	}
	return nil
}

// Addr returns the physical address of a registered table.
func (r *MemoryRegistry) Addr(id TableID) (uint64, bool) {
	addr, ok := r.addrs[id]
	return addr, ok
}

// DirRegistry writes each table to <dir>/<id>.aml.
type DirRegistry struct {
	Dir string
}

// Path returns the file a table with the given ID is written to.
func (r DirRegistry) Path(id TableID) string {
	return filepath.Join(r.Dir, strings.ToLower(string(id))+".aml")
}

func (r DirRegistry) Register(t Table) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create table dir: %w", err)
	}
	path := r.Path(t.ID)
	if err := os.WriteFile(path, t.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
