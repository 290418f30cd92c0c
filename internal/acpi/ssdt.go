package acpi

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/cpupm/internal/cpuinfo"
)

// Generate builds the finalized CpuPm SSDT for d. Descriptor and config
// problems are returned as errors; anything that goes wrong after they have
// been accepted is an internal invariant violation and panics.
func Generate(d cpuinfo.Descriptor, cfg Config) ([]byte, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if int(d.NumThreads) > MaxThreads {
		return nil, fmt.Errorf("%w: %d threads, at most %d", ErrTooManyThreads, d.NumThreads, MaxThreads)
	}

	var sc StateCount
	if cfg.Features.Has(FeaturePStates) {
		sc = CountStates(d, cfg)
		// Synthesized turbo ratios count down from the one-core ratio and
		// must stay above zero.
		if sc.Synthesized && sc.Turbo > int(d.TurboRatio(0)) {
			return nil, fmt.Errorf("%w: %d turbo states exceed the one-core turbo ratio %d",
				ErrInvalidConfig, sc.Turbo, d.TurboRatio(0))
		}
	}

	table := assemble(d, cfg, sc)
	Finalize(table)

	slog.Debug("generated ssdt",
		"features", cfg.Features.String(),
		"threads", d.NumThreads,
		"turboStates", sc.Turbo,
		"pstates", sc.Total,
		"length", len(table),
	)
	return table, nil
}

// assemble copies and patches every template in emission order. Consumers
// locate fields by fixed offsets, so the order is part of the format.
func assemble(d cpuinfo.Descriptor, cfg Config, sc StateCount) []byte {
	threads := int(d.NumThreads)
	w := newTableWriter(Size(threads, sc.Total, cfg.Features))

	w.Append(headerTemplate(cfg.OEM))

	if cfg.Features.Has(FeatureSMBusDevice) {
		smbus := scopeSMBus
		w.Append(smbus[:])
	}

	if cfg.Features.Has(FeatureProcessorBlocks) {
		appendProcessorBlocks(w, cfg.ProcessorLabel, threads)
	}

	if cfg.Features.Has(FeaturePStates) {
		appendPStates(w, d, cfg, sc)
	}

	return w.Bytes()
}

// appendProcessorBlocks emits Scope (\_PR_) and one Processor () per thread.
func appendProcessorBlocks(w *tableWriter, label string, threads int) {
	scope := scopePR
	putScopeLength(scope[scopeLengthOffset:], processorScopeSize(threads))
	w.Append(scope[:])

	for t := 0; t < threads; t++ {
		decl := processorDecl
		copy(decl[processorLabelOffset:], label)
		decl[processorOrdinalIndex] = ordinal(t)
		decl[processorNumberIndex] = byte(t + 1)
		w.Append(decl[:])
	}
}

// appendPStates emits the \_PR.CPU0 scope with APSN, APSS and ACST, followed
// by a per-thread scope redirecting every other CPU to CPU0's APSS.
func appendPStates(w *tableWriter, d cpuinfo.Descriptor, cfg Config, sc StateCount) {
	scope := scopePRCPU0
	putScopeLength(scope[scopeLengthOffset:], pstateScopeSize(sc.Total))
	copy(scope[scopePRCPU0LabelOffset:], cfg.ProcessorLabel)
	w.Append(scope[:])

	apsn := nameAPSN
	apsn[apsnValueIndex] = d.NumCores
	w.Append(apsn[:])

	apss := nameAPSS
	putScopeLength(apss[apssLengthOffset:], pstatePackageSize(sc.Total))
	apss[apssCountIndex] = byte(sc.Total)
	w.Append(apss[:])

	emitted := 0
	DerivePStates(d, cfg, sc, func(p PState) {
		pkg := packagePState
		p.Encode(pkg[:])
		w.Append(pkg[:])
		emitted++
	})
	if emitted != sc.Total {
		panic(fmt.Sprintf("acpi: emitted %d P-states, expected %d", emitted, sc.Total))
	}

	acst := methodACST
	w.Append(acst[:])

	for t := 1; t < int(d.NumThreads); t++ {
		cpu := scopeCPUN
		copy(cpu[scopeCPUNLabelOffset:], cfg.ProcessorLabel)
		cpu[scopeCPUNOrdinalIndex] = ordinal(t)
		copy(cpu[scopeCPUNTargetLabelOffset:], cfg.ProcessorLabel)
		w.Append(cpu[:])
	}
}
