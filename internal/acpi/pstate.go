package acpi

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tinyrange/cpupm/internal/cpuinfo"
)

// PState is one _PSS-style operating point. Ratio and Status carry the same
// value; the power management driver reads the operating point tag from
// both.
type PState struct {
	Frequency uint16 // MHz
	Power     uint32 // mW
	Ratio     uint16
	Status    uint16
}

// Field offsets inside packagePState.
const (
	pstateFrequencyOffset = 4
	pstatePowerOffset     = 7
	pstateRatioOffset     = 16
	pstateStatusOffset    = 19
)

var ErrBadPState = errors.New("acpi: malformed P-state package")

// Encode writes p into an emitted copy of the P-state package.
func (p PState) Encode(dst []byte) {
	if len(dst) < pstateSize {
		panic("acpi: P-state buffer too small")
	}
	binary.LittleEndian.PutUint16(dst[pstateFrequencyOffset:], p.Frequency)
	binary.LittleEndian.PutUint32(dst[pstatePowerOffset:], p.Power)
	binary.LittleEndian.PutUint16(dst[pstateRatioOffset:], p.Ratio)
	binary.LittleEndian.PutUint16(dst[pstateStatusOffset:], p.Status)
}

// DecodePState reads a P-state package previously written by Encode.
func DecodePState(src []byte) (PState, error) {
	if len(src) < pstateSize {
		return PState{}, fmt.Errorf("%w: %d bytes", ErrBadPState, len(src))
	}
	// Everything except the four value fields is fixed.
	for i, b := range packagePState {
		switch {
		case i >= pstateFrequencyOffset && i < pstateFrequencyOffset+2,
			i >= pstatePowerOffset && i < pstatePowerOffset+4,
			i >= pstateRatioOffset && i < pstateRatioOffset+2,
			i >= pstateStatusOffset && i < pstateStatusOffset+2:
			continue
		}
		if src[i] != b {
			return PState{}, fmt.Errorf("%w: byte %d is 0x%02x, want 0x%02x", ErrBadPState, i, src[i], b)
		}
	}
	return PState{
		Frequency: binary.LittleEndian.Uint16(src[pstateFrequencyOffset:]),
		Power:     binary.LittleEndian.Uint32(src[pstatePowerOffset:]),
		Ratio:     binary.LittleEndian.Uint16(src[pstateRatioOffset:]),
		Status:    binary.LittleEndian.Uint16(src[pstateStatusOffset:]),
	}, nil
}

// StateCount is the output of the state-count calculator.
type StateCount struct {
	Turbo int
	Total int

	// Synthesized is set when more than four turbo states were requested;
	// turbo multipliers are then counted down from the one-core ratio.
	Synthesized bool
}

// CountStates determines how many turbo and total P-states are emitted.
func CountStates(d cpuinfo.Descriptor, cfg Config) StateCount {
	var sc StateCount

	if d.DiscoveredTurboRatios() > 0 && d.NumberOfTurboRatios > 0 {
		if cfg.ExtendedTurboRange {
			turboRange := int(d.TurboRatio(0)) - int(d.TurboRatio(int(d.NumCores)-1))
			if turboRange > 3 {
				sc.Turbo = turboRange + 1
			} else {
				sc.Turbo = cfg.DefaultTurboStates
			}
		} else {
			sc.Turbo = min(d.DiscoveredTurboRatios(), int(d.NumberOfTurboRatios))
		}
	}
	sc.Synthesized = sc.Turbo > 4

	// The minimum bus ratio state is always emitted, so turbo states can use
	// at most all but one slot.
	if sc.Turbo > cfg.MaxPStates-1 {
		sc.Turbo = cfg.MaxPStates - 1
	}

	sc.Total = int(d.MaxBusRatio-d.MinBusRatio) + sc.Turbo + 1
	if sc.Total > cfg.MaxPStates {
		sc.Total = cfg.MaxPStates
	}
	return sc
}

// turboFrequencyQuirkRatio is a multiplier some firmware reports for
// single-turbo parts; the resulting 5.9 GHz entry is replaced by max+1 MHz.
const turboFrequencyQuirkRatio = 59

// DerivePStates computes every P-state in descending frequency order and
// hands each one to emit as soon as it is derived.
func DerivePStates(d cpuinfo.Descriptor, cfg Config, sc StateCount, emit func(PState)) {
	tdp := d.TDPMilliwatts()
	maxRatio := int(d.MaxBusRatio)
	minRatio := int(d.MinBusRatio)
	emitted := 0

	for i := 0; i < sc.Turbo; i++ {
		var ratio int
		if sc.Synthesized {
			ratio = int(d.TurboRatio(0)) - i
		} else {
			ratio = int(d.TurboRatio(i))
		}
		if ratio <= 0 {
			panic(fmt.Sprintf("acpi: synthesized turbo ratio %d for state %d", ratio, i))
		}

		frequency := ratio * 100
		if ratio == turboFrequencyQuirkRatio && sc.Turbo == 1 {
			frequency = maxRatio*100 + 1
		}

		encoded := uint16(ratio << 8)
		emit(PState{
			Frequency: uint16(frequency),
			Power:     tdp,
			Ratio:     encoded,
			Status:    encoded,
		})
		emitted++
	}

	for ratio := maxRatio; ratio >= minRatio; ratio-- {
		// Out of budget: drop intermediate states but keep the lowest one.
		if ratio != minRatio && emitted >= cfg.MaxPStates-1 {
			continue
		}

		encoded := uint16(ratio << 8)
		emit(PState{
			Frequency: uint16(ratio * 100),
			Power:     nonTurboPower(ratio, maxRatio, tdp),
			Ratio:     encoded,
			Status:    encoded,
		})
		emitted++
	}
}

// nonTurboPower scales TDP by frequency and an approximated voltage that
// drops 0.00625 V per multiplier step below the maximum from 1.1 V.
// Single precision matches the reference tables.
func nonTurboPower(ratio, maxRatio int, tdp uint32) uint32 {
	m := float32((1.1 - float64(maxRatio-ratio)*0.00625) / 1.1)
	power := float32(ratio) / float32(maxRatio) * (m * m) * float32(tdp)
	return uint32(power)
}

// PStates collects the derived P-states into a slice.
func PStates(d cpuinfo.Descriptor, cfg Config) []PState {
	cfg.normalize()
	sc := CountStates(d, cfg)
	out := make([]PState, 0, sc.Total)
	DerivePStates(d, cfg, sc, func(p PState) {
		out = append(out, p)
	})
	return out
}
