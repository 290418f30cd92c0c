package acpi

import (
	"errors"
	"fmt"
	"strings"
)

// Features selects which parts of the SSDT are generated. The bit values
// follow the AUTOMATIC_SSDT_PR_CREATION build directive.
type Features uint8

const (
	FeaturePStates         Features = 1 << 0
	FeatureProcessorBlocks Features = 1 << 1
	FeatureSMBusDevice     Features = 1 << 2

	FeaturesAll = FeaturePStates | FeatureProcessorBlocks | FeatureSMBusDevice
)

func (f Features) Has(flag Features) bool { return f&flag == flag }

func (f Features) String() string {
	var parts []string
	if f.Has(FeaturePStates) {
		parts = append(parts, "pstates")
	}
	if f.Has(FeatureProcessorBlocks) {
		parts = append(parts, "processors")
	}
	if f.Has(FeatureSMBusDevice) {
		parts = append(parts, "smbus")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseFeatures accepts a comma separated list of feature names, "all" or
// "none".
func ParseFeatures(s string) (Features, error) {
	var f Features
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
		case "all":
			f |= FeaturesAll
		case "none":
		case "pstates", "p-states":
			f |= FeaturePStates
		case "processors", "cpus":
			f |= FeatureProcessorBlocks
		case "smbus", "sbus":
			f |= FeatureSMBusDevice
		default:
			return 0, fmt.Errorf("acpi: unknown feature %q", name)
		}
	}
	return f, nil
}

const (
	// DefaultMaxPStates is the P-state limit used when none is configured.
	DefaultMaxPStates = 16

	// DefaultTurboStates is the number of turbo states emitted when no
	// extended turbo range is detected.
	DefaultTurboStates = 4

	// MaxThreads is the number of distinct ordinal characters available
	// for processor labels.
	MaxThreads = len(ordinalChars)

	// maxScopeLength is the largest length the two-byte PkgLength patch
	// can hold.
	maxScopeLength = 0xFFF

	// maxPStateLimit is the most P-states whose \_PR.CPU0 scope length
	// still fits maxScopeLength.
	maxPStateLimit = (maxScopeLength - (scopePRCPU0Size + nameAPSNSize + nameAPSSSize + methodACSTSize)) / pstateSize
)

var (
	ErrTooManyThreads = errors.New("acpi: too many threads for processor labels")
	ErrInvalidConfig  = errors.New("acpi: invalid config")
)

// Config controls which tables are generated and how P-states are limited.
// It is resolved once before generation and never consulted afterwards.
type Config struct {
	Features Features `yaml:"features"`

	// MaxPStates caps the total number of P-states.
	MaxPStates int `yaml:"maxPStates,omitempty"`

	// DefaultTurboStates is used when ExtendedTurboRange finds a turbo
	// range of four multipliers or less.
	DefaultTurboStates int `yaml:"defaultTurboStates,omitempty"`

	// ExtendedTurboRange derives the turbo state count from the spread
	// between the one-core and all-core turbo multipliers.
	ExtendedTurboRange bool `yaml:"extendedTurboRange,omitempty"`

	// ProcessorLabel is the three character prefix of processor names:
	// "CPU" gives CPU0, CPU1, ...; the factory names use "P00".
	ProcessorLabel string `yaml:"processorLabel,omitempty"`

	OEM OEMInfo `yaml:"-"`
}

// OEMInfo mirrors the ACPI table header OEM fields.
type OEMInfo struct {
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// DefaultOEMInfo returns the header metadata of the reference CpuPm SSDT.
func DefaultOEMInfo() OEMInfo {
	return OEMInfo{
		OEMID:           [6]byte{'A', 'P', 'P', 'L', 'E', ' '},
		OEMTableID:      [8]byte{'C', 'p', 'u', 'P', 'm'},
		OEMRevision:     0x1000,
		CreatorID:       [4]byte{'I', 'N', 'T', 'L'},
		CreatorRevision: 0x20110316,
	}
}

// DefaultConfig enables everything with the reference limits.
func DefaultConfig() Config {
	cfg := Config{Features: FeaturesAll}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.MaxPStates == 0 {
		c.MaxPStates = DefaultMaxPStates
	}
	if c.DefaultTurboStates == 0 {
		c.DefaultTurboStates = DefaultTurboStates
	}
	if c.ProcessorLabel == "" {
		c.ProcessorLabel = "CPU"
	}
	if c.OEM == (OEMInfo{}) {
		c.OEM = DefaultOEMInfo()
	}
}

// Validate reports configuration errors that would otherwise surface as
// invariant violations during generation.
func (c Config) Validate() error {
	if c.Features&^FeaturesAll != 0 {
		return fmt.Errorf("%w: unknown feature bits 0x%x", ErrInvalidConfig, uint8(c.Features&^FeaturesAll))
	}
	if c.MaxPStates < 1 || c.MaxPStates > maxPStateLimit {
		return fmt.Errorf("%w: maxPStates %d out of range [1, %d]", ErrInvalidConfig, c.MaxPStates, maxPStateLimit)
	}
	if c.DefaultTurboStates < 0 || c.DefaultTurboStates > maxPStateLimit {
		return fmt.Errorf("%w: defaultTurboStates %d out of range", ErrInvalidConfig, c.DefaultTurboStates)
	}
	if len(c.ProcessorLabel) != 3 || !isNameString(c.ProcessorLabel) {
		return fmt.Errorf("%w: processor label %q must be three AML name characters", ErrInvalidConfig, c.ProcessorLabel)
	}
	return nil
}

// isNameString reports whether s is made of AML NameChar bytes with a
// leading character that is not a digit.
func isNameString(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
