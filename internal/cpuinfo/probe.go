package cpuinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Model specific registers read by the probe.
const (
	msrPlatformInfo     = 0xCE
	msrTurboRatioLimit  = 0x1AD
	msrRAPLPowerUnit    = 0x606
	msrPackagePowerInfo = 0x614
)

const (
	defaultSysfsRoot = "/sys/devices/system/cpu"
	maxConcurrency   = 8

	// MSR_TURBO_RATIO_LIMIT holds one ratio per byte for 1..8 active cores.
	maxTurboRatios = 8
)

// ErrNoMSR is returned when model specific registers cannot be read on this
// platform.
var ErrNoMSR = errors.New("cpuinfo: MSR access not available")

// MSRReader reads a 64-bit model specific register on a logical CPU.
type MSRReader interface {
	ReadMSR(cpu int, reg uint32) (uint64, error)
}

// ProbeOptions configures Probe.
type ProbeOptions struct {
	// SysfsRoot defaults to /sys/devices/system/cpu.
	SysfsRoot string

	// MSR defaults to the device-file reader for the current OS.
	MSR MSRReader
}

type cpuTopology struct {
	pkg  int
	core int
}

// Probe builds a Descriptor from the running machine: topology from sysfs
// and ratios/TDP from MSRs of CPU 0.
func Probe(ctx context.Context, opts ProbeOptions) (Descriptor, error) {
	if opts.SysfsRoot == "" {
		opts.SysfsRoot = defaultSysfsRoot
	}
	if opts.MSR == nil {
		opts.MSR = DeviceMSR{}
	}

	cores, threads, err := readTopology(ctx, opts.SysfsRoot)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		NumCores:   clampUint8(cores),
		NumThreads: clampUint8(threads),
	}

	platformInfo, err := opts.MSR.ReadMSR(0, msrPlatformInfo)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read MSR_PLATFORM_INFO: %w", err)
	}
	d.MaxBusRatio = uint8(platformInfo >> 8)
	d.MinBusRatio = uint8(platformInfo >> 40)

	// Turbo and RAPL registers are optional; a missing value leaves the
	// descriptor without turbo states or TDP.
	if limit, err := opts.MSR.ReadMSR(0, msrTurboRatioLimit); err != nil {
		slog.Debug("turbo ratio limit unavailable", "error", err)
	} else {
		d.CoreTurboRatio = decodeTurboRatios(limit, int(d.NumCores))
		d.NumberOfTurboRatios = uint8(len(d.CoreTurboRatio))
	}

	if tdp, err := readTDP(opts.MSR); err != nil {
		slog.Debug("package power info unavailable", "error", err)
	} else {
		d.TDP = tdp
	}

	slog.Debug("probed cpu",
		"cores", d.NumCores,
		"threads", d.NumThreads,
		"minRatio", d.MinBusRatio,
		"maxRatio", d.MaxBusRatio,
		"turbo", d.CoreTurboRatio,
		"tdp", d.TDP,
	)

	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// decodeTurboRatios unpacks MSR_TURBO_RATIO_LIMIT. Zero bytes end the list.
func decodeTurboRatios(limit uint64, cores int) []uint8 {
	n := cores
	if n > maxTurboRatios {
		n = maxTurboRatios
	}
	var ratios []uint8
	for i := 0; i < n; i++ {
		r := uint8(limit >> (8 * i))
		if r == 0 {
			break
		}
		ratios = append(ratios, r)
	}
	return ratios
}

// readTDP converts PKG_POWER_INFO thermal spec power into whole watts.
func readTDP(msr MSRReader) (uint32, error) {
	unit, err := msr.ReadMSR(0, msrRAPLPowerUnit)
	if err != nil {
		return 0, err
	}
	info, err := msr.ReadMSR(0, msrPackagePowerInfo)
	if err != nil {
		return 0, err
	}
	powerUnit := uint64(1) << (unit & 0x0F)
	units := info & 0x7FFF
	return uint32((units + powerUnit/2) / powerUnit), nil
}

func readTopology(ctx context.Context, root string) (cores, threads int, err error) {
	dirs, err := filepath.Glob(filepath.Join(root, "cpu[0-9]*"))
	if err != nil {
		return 0, 0, err
	}
	if len(dirs) == 0 {
		return 0, 0, fmt.Errorf("no cpus found under %s", root)
	}
	sort.Strings(dirs)

	var (
		mu   sync.Mutex
		seen = make(map[cpuTopology]struct{})
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrency)

	for _, dir := range dirs {
		dir := dir
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			// Offline CPUs have no topology directory.
			if _, err := os.Stat(filepath.Join(dir, "topology")); os.IsNotExist(err) {
				return nil
			}
			pkg, err := readIntFile(filepath.Join(dir, "topology", "physical_package_id"))
			if err != nil {
				return err
			}
			core, err := readIntFile(filepath.Join(dir, "topology", "core_id"))
			if err != nil {
				return err
			}

			mu.Lock()
			seen[cpuTopology{pkg: pkg, core: core}] = struct{}{}
			threads++
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, 0, fmt.Errorf("read cpu topology: %w", err)
	}
	return len(seen), threads, nil
}

func readIntFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func clampUint8(v int) uint8 {
	if v > 0xFF {
		return 0xFF
	}
	return uint8(v)
}
