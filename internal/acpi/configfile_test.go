package acpi

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("empty config = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestParseConfigFeatures(t *testing.T) {
	tests := []struct {
		yaml string
		want Features
	}{
		{"features: 7", FeaturesAll},
		{"features: 1", FeaturePStates},
		{"features: 0x6", FeatureProcessorBlocks | FeatureSMBusDevice},
		{"features: pstates,smbus", FeaturePStates | FeatureSMBusDevice},
		{"features: [processors]", FeatureProcessorBlocks},
		{"features: none", 0},
	}
	for _, tt := range tests {
		cfg, err := ParseConfig([]byte(tt.yaml))
		if err != nil {
			t.Fatalf("%q: %v", tt.yaml, err)
		}
		if cfg.Features != tt.want {
			t.Fatalf("%q: features %v, want %v", tt.yaml, cfg.Features, tt.want)
		}
	}
}

func TestParseConfigRejects(t *testing.T) {
	for _, data := range []string{
		"features: turbo",
		"features: 8",
		"maxPStates: 300",
		"maxPStates: 188",
		"processorLabel: CPUS",
		"oem:\n  id: TOOLONGID\n",
	} {
		if _, err := ParseConfig([]byte(data)); err == nil {
			t.Fatalf("%q: expected error", data)
		}
	}
	if _, err := ParseConfig([]byte("maxPStates: -1")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseConfigOEM(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
oem:
  id: TINYR
  tableID: CPUPM
  revision: 2
  creatorID: GO
  creatorRevision: 7
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if string(cfg.OEM.OEMID[:]) != "TINYR " {
		t.Fatalf("oem id %q", cfg.OEM.OEMID)
	}
	if string(cfg.OEM.OEMTableID[:]) != "CPUPM\x00\x00\x00" {
		t.Fatalf("oem table id %q", cfg.OEM.OEMTableID)
	}
	if string(cfg.OEM.CreatorID[:]) != "GO  " || cfg.OEM.CreatorRevision != 7 || cfg.OEM.OEMRevision != 2 {
		t.Fatalf("creator %+v", cfg.OEM)
	}
}

func TestWriteThenLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssdt.yaml")
	want := DefaultConfig()
	want.Features = FeaturePStates | FeatureProcessorBlocks
	want.MaxPStates = 12
	want.ExtendedTurboRange = true
	want.ProcessorLabel = "P00"

	if err := WriteConfig(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("loaded %+v, want %+v", got, want)
	}
}

func TestParseFeaturesString(t *testing.T) {
	f, err := ParseFeatures("all")
	if err != nil || f != FeaturesAll {
		t.Fatalf("ParseFeatures(all) = %v, %v", f, err)
	}
	if FeaturesAll.String() != "pstates|processors|smbus" {
		t.Fatalf("String() = %q", FeaturesAll.String())
	}
	if Features(0).String() != "none" {
		t.Fatalf("String() = %q", Features(0).String())
	}
}
