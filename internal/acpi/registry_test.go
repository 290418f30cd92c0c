package acpi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestInstallRegistersLoadedTable(t *testing.T) {
	set := NewTableSet()
	if err := Install(set, sandyBridge(), DefaultConfig()); err != nil {
		t.Fatalf("install: %v", err)
	}

	table, ok := set.Lookup(TableSSDTPR)
	if !ok {
		t.Fatalf("SSDT_PR not registered")
	}
	if !table.Loaded {
		t.Fatalf("table not marked as loaded")
	}
	if table.Signature() != "SSDT" {
		t.Fatalf("signature %q", table.Signature())
	}
	if err := Verify(table.Data); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := Install(set, sandyBridge(), DefaultConfig()); !errors.Is(err, ErrTableExists) {
		t.Fatalf("expected ErrTableExists on second install, got %v", err)
	}

	set.Release(TableSSDTPR)
	if _, ok := set.Lookup(TableSSDTPR); ok {
		t.Fatalf("table still present after release")
	}
	if err := Install(set, sandyBridge(), DefaultConfig()); err != nil {
		t.Fatalf("install after release: %v", err)
	}
	if ids := set.IDs(); len(ids) != 1 || ids[0] != TableSSDTPR {
		t.Fatalf("ids %v", ids)
	}
}

func TestInstallPropagatesGenerateErrors(t *testing.T) {
	d := sandyBridge()
	d.NumCores = 0
	set := NewTableSet()
	if err := Install(set, d, DefaultConfig()); err == nil {
		t.Fatalf("expected error")
	}
	if len(set.IDs()) != 0 {
		t.Fatalf("nothing should be registered on failure")
	}
}

type failingRegistry struct{}

func (failingRegistry) Register(Table) error { return fmt.Errorf("registry full") }

func TestInstallPropagatesRegistryErrors(t *testing.T) {
	if err := Install(failingRegistry{}, sandyBridge(), DefaultConfig()); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeMemory struct {
	mem  []byte
	base uint64
}

func (f *fakeMemory) WriteAt(p []byte, off int64) (int, error) {
	idx := int(off - int64(f.base))
	if idx < 0 || idx+len(p) > len(f.mem) {
		return 0, fmt.Errorf("offset out of range")
	}
	return copy(f.mem[idx:], p), nil
}

func TestMemoryRegistryAlignsTables(t *testing.T) {
	mem := &fakeMemory{mem: make([]byte, 0x2000), base: 0x100000}
	reg := NewMemoryRegistry(mem, 0x100000, 0x2000)

	if err := Install(reg, sandyBridge(), DefaultConfig()); err != nil {
		t.Fatalf("install: %v", err)
	}
	first, ok := reg.Addr(TableSSDTPR)
	if !ok || first != 0x100000 {
		t.Fatalf("first table at 0x%x", first)
	}

	other := Table{ID: "OTHER", Data: []byte("XXXX"), Loaded: true}
	if err := reg.Register(other); err != nil {
		t.Fatalf("register: %v", err)
	}
	second, _ := reg.Addr("OTHER")
	// 791 bytes rounded up to the next 8-byte boundary.
	if second != 0x100000+792 {
		t.Fatalf("second table at 0x%x, want 0x%x", second, 0x100000+792)
	}

	table := mem.mem[:791]
	if err := Verify(table); err != nil {
		t.Fatalf("table in memory: %v", err)
	}
	if !bytes.Equal(mem.mem[792:796], []byte("XXXX")) {
		t.Fatalf("second table not written")
	}

	if err := reg.Register(other); !errors.Is(err, ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}
}

func TestMemoryRegistryRegionTooSmall(t *testing.T) {
	mem := &fakeMemory{mem: make([]byte, 64)}
	reg := NewMemoryRegistry(mem, 0, 64)
	if err := Install(reg, sandyBridge(), DefaultConfig()); err == nil {
		t.Fatalf("expected error for undersized region")
	}
}

func TestDirRegistry(t *testing.T) {
	reg := DirRegistry{Dir: t.TempDir()}
	if err := Install(reg, sandyBridge(), DefaultConfig()); err != nil {
		t.Fatalf("install: %v", err)
	}
	data, err := os.ReadFile(reg.Path(TableSSDTPR))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := Verify(data); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
