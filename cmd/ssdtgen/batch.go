package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/tinyrange/cpupm/internal/acpi"
	"github.com/tinyrange/cpupm/internal/cpuinfo"
	"golang.org/x/sync/errgroup"
)

type batchResult struct {
	Descriptor string
	Path       string
	Err        error
}

// batchOutputNames returns the output directory name of each descriptor,
// its base name without extension. Two descriptors sharing a name would
// write the same table, so that is an error.
func batchOutputNames(paths []string) ([]string, error) {
	names := make([]string, len(paths))
	seen := make(map[string]string, len(paths))
	for i, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("descriptors %s and %s both write to %q", prev, path, name)
		}
		seen[name] = path
		names[i] = name
	}
	return names, nil
}

// generateBatch writes one table per descriptor file into
// <outDir>/<name>/ssdt_pr.aml, with names from batchOutputNames. Failures
// are collected per descriptor and do not stop the rest of the batch.
func generateBatch(ctx context.Context, paths, names []string, outDir string, cfg acpi.Config, jobs int, bar *progressbar.ProgressBar) []batchResult {
	results := make([]batchResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res := batchResult{Descriptor: path}
			defer func() {
				results[i] = res
				bar.Add(1)
			}()

			if err := ctx.Err(); err != nil {
				res.Err = err
				return nil
			}

			desc, err := cpuinfo.LoadFile(path)
			if err != nil {
				res.Err = err
				return nil
			}

			reg := acpi.DirRegistry{Dir: filepath.Join(outDir, names[i])}
			if err := acpi.Install(reg, desc, cfg); err != nil {
				res.Err = err
				return nil
			}
			res.Path = reg.Path(acpi.TableSSDTPR)
			return nil
		})
	}
	g.Wait()

	return results
}

func runBatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)

	var gen generatorFlags
	gen.register(fs)
	outDir := fs.String("out", "out", "Directory to write the tables to")
	jobs := fs.Int("j", runtime.NumCPU(), "Number of descriptors to process in parallel")
	quiet := fs.Bool("quiet", false, "Do not show a progress bar")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: ssdtgen batch [flags] <descriptor.yaml>...")
	}
	if *jobs < 1 {
		return fmt.Errorf("-j must be at least 1")
	}
	setupLogging(gen.debug)

	cfg, err := gen.config()
	if err != nil {
		return err
	}
	names, err := batchOutputNames(fs.Args())
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if *quiet {
		bar = progressbar.DefaultSilent(int64(fs.NArg()))
	} else {
		bar = progressbar.Default(int64(fs.NArg()))
	}
	defer bar.Close()

	results := generateBatch(ctx, fs.Args(), names, *outDir, cfg, *jobs, bar)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Error("generate failed", "descriptor", res.Descriptor, "error", res.Err)
			continue
		}
		fmt.Fprintln(stdout, res.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d descriptors failed", failed, len(results))
	}
	return nil
}
