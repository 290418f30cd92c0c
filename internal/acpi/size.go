package acpi

// Size returns the exact byte length of the SSDT for the given thread and
// P-state counts.
func Size(threads, pstates int, features Features) int {
	size := headerSize

	if features.Has(FeatureSMBusDevice) {
		size += scopeSMBusSize
	}

	if features.Has(FeatureProcessorBlocks) {
		size += scopePRSize + processorDeclSize*threads
	}

	if features.Has(FeaturePStates) {
		size += pstateScopeSize(pstates) + scopeCPUNSize*(threads-1)
	}

	return size
}

// pstateScopeSize is the size of the \_PR.CPU0 scope and its contents.
func pstateScopeSize(pstates int) int {
	return scopePRCPU0Size +
		nameAPSNSize +
		nameAPSSSize +
		pstateSize*pstates +
		methodACSTSize
}

// processorScopeSize is the length value patched into \_PR_.
func processorScopeSize(threads int) int {
	return scopePRSize + processorDeclSize*threads - 1
}

// pstatePackageSize is the length value patched into the APSS package. The
// extra four bytes account for the package header the grammar counts.
func pstatePackageSize(pstates int) int {
	return pstateSize*pstates + 4
}
