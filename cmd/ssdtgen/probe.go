package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/tinyrange/cpupm/internal/cpuinfo"
	"gopkg.in/yaml.v3"
)

func runProbe(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	sysfs := fs.String("sysfs", "", "CPU sysfs root (default /sys/devices/system/cpu)")
	output := fs.String("o", "", "Write the descriptor to this file instead of stdout")
	debug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	setupLogging(*debug)

	desc, err := cpuinfo.Probe(ctx, cpuinfo.ProbeOptions{SysfsRoot: *sysfs})
	if err != nil {
		return err
	}

	if *output != "" {
		return cpuinfo.WriteFile(*output, desc)
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&desc); err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	return enc.Close()
}
