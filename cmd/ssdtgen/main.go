// Command ssdtgen generates the CPU power-management SSDT (P-states,
// processor declarations and the SMBus device) from a CPU descriptor.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const usage = `Usage: ssdtgen <command> [flags]

Commands:
  generate   build ssdt_pr.aml from a descriptor file or the local CPU
  probe      read the local CPU and print a descriptor
  dump       decode a generated table
  batch      generate tables for many descriptor files

Run "ssdtgen <command> -h" for the flags of a command.
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ssdtgen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("command required")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "generate":
		return runGenerate(ctx, rest, stdout)
	case "probe":
		return runProbe(ctx, rest, stdout)
	case "dump":
		return runDump(rest, stdout)
	case "batch":
		return runBatch(ctx, rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
