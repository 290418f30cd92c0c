package cpuinfo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a descriptor from a YAML file and validates it.
func LoadFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML descriptor and validates it.
func Parse(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse descriptor: %w", err)
	}
	// An explicit turboRatioCount of zero means no ratios are reported
	// even when some are listed; only a missing field takes the default.
	var present struct {
		TurboRatioCount *uint8 `yaml:"turboRatioCount"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return Descriptor{}, fmt.Errorf("parse descriptor: %w", err)
	}
	d.normalize(present.TurboRatioCount != nil)
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// WriteFile writes d as YAML to path.
func WriteFile(path string, d Descriptor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&d); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (d *Descriptor) normalize(turboCountSet bool) {
	if d.NumThreads == 0 {
		d.NumThreads = d.NumCores
	}
	if !turboCountSet {
		d.NumberOfTurboRatios = uint8(len(d.CoreTurboRatio))
	}
}
