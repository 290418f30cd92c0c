package acpi

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/cpupm/internal/cpuinfo"
)

// TableID names a slot in a table registry.
type TableID string

// TableSSDTPR is the registry slot for the generated CpuPm SSDT.
const TableSSDTPR TableID = "SSDT_PR"

// Table is a finalized ACPI table handed over to a registry.
type Table struct {
	ID   TableID
	Data []byte

	// Loaded marks the table as owned by the registry, which is then
	// responsible for releasing it.
	Loaded bool
}

// Signature returns the four-character table signature.
func (t Table) Signature() string {
	if len(t.Data) < 4 {
		return ""
	}
	return string(t.Data[:4])
}

// Registry accepts finished tables. Ownership of Data passes to the
// registry; callers must not write to it afterwards.
type Registry interface {
	Register(t Table) error
}

// Install generates the SSDT for d and registers it under TableSSDTPR.
func Install(reg Registry, d cpuinfo.Descriptor, cfg Config) error {
	data, err := Generate(d, cfg)
	if err != nil {
		return fmt.Errorf("acpi: generate ssdt: %w", err)
	}

	table := Table{ID: TableSSDTPR, Data: data, Loaded: true}
	if err := reg.Register(table); err != nil {
		return fmt.Errorf("acpi: register %s: %w", table.ID, err)
	}

	slog.Info("installed ssdt", "id", table.ID, "length", len(data))
	return nil
}
