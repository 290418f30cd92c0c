package cpuinfo

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned when a descriptor violates one of the
// invariants the table generator depends on.
var ErrInvalidDescriptor = errors.New("cpuinfo: invalid descriptor")

// Descriptor is a read-only snapshot of the CPU capabilities needed to build
// the power-management SSDT. It is populated once by the platform layer
// (a probe or a descriptor file) and never mutated afterwards.
type Descriptor struct {
	// Model is informational only.
	Model string `yaml:"model,omitempty"`

	// TDP is the package thermal design power in watts.
	TDP uint32 `yaml:"tdp"`

	NumCores   uint8 `yaml:"cores"`
	NumThreads uint8 `yaml:"threads"`

	// MinBusRatio and MaxBusRatio bound the non-turbo multiplier range.
	MinBusRatio uint8 `yaml:"minBusRatio"`
	MaxBusRatio uint8 `yaml:"maxBusRatio"`

	// NumberOfTurboRatios is the turbo ratio count reported by the platform.
	// It may be smaller than len(CoreTurboRatio).
	NumberOfTurboRatios uint8 `yaml:"turboRatioCount"`

	// CoreTurboRatio holds the turbo multiplier for 1..N active cores.
	// Index 0 is the highest; values never increase with the index.
	CoreTurboRatio []uint8 `yaml:"turboRatios,omitempty"`
}

// TDPMilliwatts returns the thermal design power in milliwatts.
func (d Descriptor) TDPMilliwatts() uint32 {
	return d.TDP * 1000
}

// DiscoveredTurboRatios returns how many turbo multipliers are known.
func (d Descriptor) DiscoveredTurboRatios() int {
	return len(d.CoreTurboRatio)
}

// TurboRatio returns the turbo multiplier for index i. Indices past the
// known ratios repeat the last known one; with no ratios at all it is 0.
func (d Descriptor) TurboRatio(i int) uint8 {
	if len(d.CoreTurboRatio) == 0 || i < 0 {
		return 0
	}
	if i >= len(d.CoreTurboRatio) {
		return d.CoreTurboRatio[len(d.CoreTurboRatio)-1]
	}
	return d.CoreTurboRatio[i]
}

// Validate checks the invariants of the descriptor.
func (d Descriptor) Validate() error {
	if d.NumCores == 0 {
		return fmt.Errorf("%w: core count is zero", ErrInvalidDescriptor)
	}
	if d.NumThreads < d.NumCores {
		return fmt.Errorf("%w: %d threads for %d cores", ErrInvalidDescriptor, d.NumThreads, d.NumCores)
	}
	if d.MaxBusRatio == 0 {
		return fmt.Errorf("%w: max bus ratio is zero", ErrInvalidDescriptor)
	}
	if d.MinBusRatio > d.MaxBusRatio {
		return fmt.Errorf("%w: min bus ratio %d above max %d", ErrInvalidDescriptor, d.MinBusRatio, d.MaxBusRatio)
	}
	if d.MinBusRatio == 0 {
		return fmt.Errorf("%w: min bus ratio is zero", ErrInvalidDescriptor)
	}
	for i := 1; i < len(d.CoreTurboRatio); i++ {
		if d.CoreTurboRatio[i] > d.CoreTurboRatio[i-1] {
			return fmt.Errorf("%w: turbo ratio %d (%d) above ratio %d (%d)",
				ErrInvalidDescriptor, i, d.CoreTurboRatio[i], i-1, d.CoreTurboRatio[i-1])
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.CoreTurboRatio != nil {
		out.CoreTurboRatio = append([]uint8(nil), d.CoreTurboRatio...)
	}
	return out
}
