package acpi

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// configFile is the on-disk form of Config. OEM fields are plain strings.
type configFile struct {
	Config `yaml:",inline"`

	OEM *oemFile `yaml:"oem,omitempty"`
}

type oemFile struct {
	ID              string `yaml:"id"`
	TableID         string `yaml:"tableID"`
	Revision        uint32 `yaml:"revision"`
	CreatorID       string `yaml:"creatorID"`
	CreatorRevision uint32 `yaml:"creatorRevision"`
}

// UnmarshalYAML accepts the numeric bitmask (1 P-states, 2 processor
// blocks, 4 SMBus device), a comma separated string or a list of names.
func (f *Features) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if n, err := strconv.ParseUint(value.Value, 0, 8); err == nil {
			*f = Features(n)
			return nil
		}
		parsed, err := ParseFeatures(value.Value)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		parsed, err := ParseFeatures(strings.Join(names, ","))
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	default:
		return fmt.Errorf("acpi: features must be a number, string or list")
	}
}

// MarshalYAML writes features as a name list.
func (f Features) MarshalYAML() (any, error) {
	if f == 0 {
		return "none", nil
	}
	return strings.ReplaceAll(f.String(), "|", ","), nil
}

// LoadConfig reads a generator config from a YAML file. Missing fields take
// the defaults of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML generator config.
func ParseConfig(data []byte) (Config, error) {
	file := configFile{Config: Config{Features: FeaturesAll}}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, err
	}

	cfg := file.Config
	if file.OEM != nil {
		oem, err := file.OEM.toOEMInfo()
		if err != nil {
			return Config{}, err
		}
		cfg.OEM = oem
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfig writes cfg as YAML to path.
func WriteConfig(path string, cfg Config) error {
	cfg.normalize()
	file := configFile{Config: cfg, OEM: fromOEMInfo(cfg.OEM)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (o *oemFile) toOEMInfo() (OEMInfo, error) {
	var info OEMInfo
	if err := fixedField(info.OEMID[:], o.ID, "oem id", ' '); err != nil {
		return OEMInfo{}, err
	}
	if err := fixedField(info.OEMTableID[:], o.TableID, "oem table id", 0); err != nil {
		return OEMInfo{}, err
	}
	if err := fixedField(info.CreatorID[:], o.CreatorID, "creator id", ' '); err != nil {
		return OEMInfo{}, err
	}
	info.OEMRevision = o.Revision
	info.CreatorRevision = o.CreatorRevision
	return info, nil
}

func fromOEMInfo(info OEMInfo) *oemFile {
	return &oemFile{
		ID:              string(info.OEMID[:]),
		TableID:         strings.TrimRight(string(info.OEMTableID[:]), "\x00"),
		Revision:        info.OEMRevision,
		CreatorID:       string(info.CreatorID[:]),
		CreatorRevision: info.CreatorRevision,
	}
}

// fixedField copies s into dst and pads the remainder with pad.
func fixedField(dst []byte, s, name string, pad byte) error {
	if len(s) > len(dst) {
		return fmt.Errorf("%w: %s %q longer than %d bytes", ErrInvalidConfig, name, s, len(dst))
	}
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = pad
	}
	return nil
}
