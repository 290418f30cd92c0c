package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinyrange/cpupm/internal/acpi"
	"github.com/tinyrange/cpupm/internal/cpuinfo"
)

// generatorFlags are shared by generate and batch. Flags that were set on
// the command line override the config file.
type generatorFlags struct {
	configPath string
	features   string
	maxPStates int
	extended   boolFlag
	label      string
	debug      bool
}

type boolFlag struct {
	v   bool
	set bool
}

func (f *boolFlag) String() string {
	if f.v {
		return "true"
	}
	return "false"
}

func (f *boolFlag) Set(s string) error {
	switch s {
	case "true", "1":
		f.v = true
	case "false", "0":
		f.v = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	f.set = true
	return nil
}

func (f *boolFlag) IsBoolFlag() bool { return true }

func (g *generatorFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Generator config file (YAML)")
	fs.StringVar(&g.features, "features", "", "Features to generate: pstates,processors,smbus, all or none")
	fs.IntVar(&g.maxPStates, "max-pstates", 0, "Maximum number of P-states")
	fs.Var(&g.extended, "extended-turbo", "Derive the turbo state count from the turbo ratio spread")
	fs.StringVar(&g.label, "label", "", "Three character processor label prefix (CPU or P00)")
	fs.BoolVar(&g.debug, "debug", false, "Enable debug logging")
}

func (g *generatorFlags) config() (acpi.Config, error) {
	cfg := acpi.DefaultConfig()
	if g.configPath != "" {
		loaded, err := acpi.LoadConfig(g.configPath)
		if err != nil {
			return acpi.Config{}, err
		}
		cfg = loaded
	}

	if g.features != "" {
		f, err := acpi.ParseFeatures(g.features)
		if err != nil {
			return acpi.Config{}, err
		}
		cfg.Features = f
	}
	if g.maxPStates != 0 {
		cfg.MaxPStates = g.maxPStates
	}
	if g.extended.set {
		cfg.ExtendedTurboRange = g.extended.v
	}
	if g.label != "" {
		cfg.ProcessorLabel = g.label
	}

	if err := cfg.Validate(); err != nil {
		return acpi.Config{}, err
	}
	return cfg, nil
}

func runGenerate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)

	var gen generatorFlags
	gen.register(fs)
	descPath := fs.String("descriptor", "", "CPU descriptor file (YAML); probes the local CPU when empty")
	outDir := fs.String("out", ".", "Directory to write the table to")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	setupLogging(gen.debug)

	cfg, err := gen.config()
	if err != nil {
		return err
	}

	var desc cpuinfo.Descriptor
	if *descPath != "" {
		desc, err = cpuinfo.LoadFile(*descPath)
	} else {
		desc, err = cpuinfo.Probe(ctx, cpuinfo.ProbeOptions{})
	}
	if err != nil {
		return fmt.Errorf("load descriptor: %w", err)
	}

	reg := acpi.DirRegistry{Dir: *outDir}
	if err := acpi.Install(reg, desc, cfg); err != nil {
		return err
	}

	path := reg.Path(acpi.TableSSDTPR)
	slog.Debug("wrote table", "path", path, "features", cfg.Features.String())
	fmt.Fprintln(stdout, path)
	return nil
}
