package acpi

// AML archetypes for the CpuPm SSDT. They are arrays so every emission works
// on a value copy and patches never reach the archetype. The bytes match the
// reference ssdt_pr.aml byte for byte.

const ordinalChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	headerSize = 36

	headerLengthOffset   = 4
	headerRevisionOffset = 8
	headerChecksumOffset = 9

	// All scope and package templates carry their PkgLength at offset 1.
	scopeLengthOffset = 1
)

// Scope (\_SB.PCI0)
// {
//     Device (SBUS)
//     {
//         Name (_ADR, 0x001F0003)
//         Device (BUS0)
//         {
//             Name (_CID, "smbus")
//             Name (_ADR, Zero)
//             Device (DVL0)
//             {
//                 Name (_ADR, 0x57)
//                 Name (_CID, "diagsvault")
//             }
//         }
//     }
// }
var scopeSMBus = [...]byte{
	0x10, 0x46, 0x05, 0x5C, 0x2E, 0x5F, 0x53, 0x42,
	0x5F, 0x50, 0x43, 0x49, 0x30, 0x5B, 0x82, 0x48,
	0x04, 0x53, 0x42, 0x55, 0x53, 0x08, 0x5F, 0x41,
	0x44, 0x52, 0x0C, 0x03, 0x00, 0x1F, 0x00, 0x5B,
	0x82, 0x36, 0x42, 0x55, 0x53, 0x30, 0x08, 0x5F,
	0x43, 0x49, 0x44, 0x0D, 0x73, 0x6D, 0x62, 0x75,
	0x73, 0x00, 0x08, 0x5F, 0x41, 0x44, 0x52, 0x00,
	0x5B, 0x82, 0x1D, 0x44, 0x56, 0x4C, 0x30, 0x08,
	0x5F, 0x41, 0x44, 0x52, 0x0A, 0x57, 0x08, 0x5F,
	0x43, 0x49, 0x44, 0x0D, 0x64, 0x69, 0x61, 0x67,
	0x73, 0x76, 0x61, 0x75, 0x6C, 0x74, 0x00,
}

// Scope (\_PR_) { }
var scopePR = [...]byte{
	0x10, 0xFF, 0xFF, 0x5C, 0x5F, 0x50, 0x52, 0x5F,
}

// Processor (CPUn, n+1, 0x00000410, 0x06) { }
var processorDecl = [...]byte{
	0x5B, 0x83, 0x0B, 0x43, 0x50, 0x55, 0x30, 0xFF,
	0x10, 0x04, 0x00, 0x00, 0x06,
}

const (
	processorLabelOffset  = 3
	processorOrdinalIndex = 6
	processorNumberIndex  = 7
)

// Scope (\_PR.CPU0) { }
var scopePRCPU0 = [...]byte{
	0x10, 0xFF, 0xFF, 0x5C, 0x2E, 0x5F, 0x50, 0x52,
	0x5F, 0x43, 0x50, 0x55, 0x30,
}

const scopePRCPU0LabelOffset = 9

// Name (APSN, NN)
var nameAPSN = [...]byte{
	0x08, 0x41, 0x50, 0x53, 0x4E, 0x0A, 0xFF,
}

const apsnValueIndex = 6

// Name (APSS, Package (NN) { })
var nameAPSS = [...]byte{
	0x08, 0x41, 0x50, 0x53, 0x53, 0x12, 0xFF, 0xFF,
	0xFF,
}

const (
	apssLengthOffset = 6
	apssCountIndex   = 8
)

// Package (0x06) { Frequency, Power, 10, 10, Ratio, Status }
var packagePState = [...]byte{
	0x12, 0x14, 0x06, 0x0B, 0x00, 0x00, 0x0C, 0x00,
	0x00, 0x00, 0x00, 0x0A, 0x0A, 0x0A, 0x0A, 0x0B,
	0x00, 0x00, 0x0B, 0x00, 0x00,
}

// Method (ACST, 0, NotSerialized) returns the C-state package: C1 (FFixedHW
// 0x00, latency 1, power 0x3E8), C3 (0x10, 0xCD, 0x1F4), C6 (0x20, 0xF5,
// 0x15E) and C7 (0x30, 0xF5, 0xC8).
var methodACST = [...]byte{
	0x14, 0x49, 0x08, 0x41, 0x43, 0x53, 0x54, 0x00,
	0xA4, 0x12, 0x40, 0x08, 0x06, 0x01, 0x0A, 0x04,
	0x12, 0x1D, 0x04, 0x11, 0x14, 0x0A, 0x11, 0x82,
	0x0C, 0x00, 0x7F, 0x01, 0x02, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x79, 0x00,
	0x01, 0x0A, 0x03, 0x0B, 0xE8, 0x03, 0x12, 0x1E,
	0x04, 0x11, 0x14, 0x0A, 0x11, 0x82, 0x0C, 0x00,
	0x7F, 0x01, 0x02, 0x03, 0x10, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x79, 0x00, 0x0A, 0x03,
	0x0A, 0xCD, 0x0B, 0xF4, 0x01, 0x12, 0x1E, 0x04,
	0x11, 0x14, 0x0A, 0x11, 0x82, 0x0C, 0x00, 0x7F,
	0x01, 0x02, 0x03, 0x20, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x79, 0x00, 0x0A, 0x06, 0x0A,
	0xF5, 0x0B, 0x5E, 0x01, 0x12, 0x1D, 0x04, 0x11,
	0x14, 0x0A, 0x11, 0x82, 0x0C, 0x00, 0x7F, 0x01,
	0x02, 0x03, 0x30, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x79, 0x00, 0x0A, 0x07, 0x0A, 0xF5,
	0x0A, 0xC8,
}

// Scope (\_PR.CPUn)
// {
//     Method (APSS, 0, NotSerialized) { Return (\_PR.CPU0.APSS) }
// }
var scopeCPUN = [...]byte{
	0x10, 0x22, 0x5C, 0x2E, 0x5F, 0x50, 0x52, 0x5F,
	0x43, 0x50, 0x55, 0x30, 0x14, 0x16, 0x41, 0x50,
	0x53, 0x53, 0x00, 0xA4, 0x5C, 0x2F, 0x03, 0x5F,
	0x50, 0x52, 0x5F, 0x43, 0x50, 0x55, 0x30, 0x41,
	0x50, 0x53, 0x53,
}

const (
	scopeCPUNLabelOffset       = 8
	scopeCPUNOrdinalIndex      = 11
	scopeCPUNTargetLabelOffset = 27
)

// Template sizes used by the size calculator.
const (
	scopeSMBusSize    = len(scopeSMBus)
	scopePRSize       = len(scopePR)
	processorDeclSize = len(processorDecl)
	scopePRCPU0Size   = len(scopePRCPU0)
	nameAPSNSize      = len(nameAPSN)
	nameAPSSSize      = len(nameAPSS)
	pstateSize        = len(packagePState)
	methodACSTSize    = len(methodACST)
	scopeCPUNSize     = len(scopeCPUN)
)

// headerTemplate builds the 36-byte SDT header. Length and checksum hold the
// archetype placeholders until Finalize.
func headerTemplate(oem OEMInfo) []byte {
	header := make([]byte, headerSize)
	copy(header[:4], "SSDT")
	putUint32(header[headerLengthOffset:], headerSize)
	header[headerRevisionOffset] = 1
	header[headerChecksumOffset] = 0xFF
	copy(header[10:16], oem.OEMID[:])
	copy(header[16:24], oem.OEMTableID[:])
	putUint32(header[24:28], oem.OEMRevision)
	copy(header[28:32], oem.CreatorID[:])
	putUint32(header[32:36], oem.CreatorRevision)
	return header
}

// ordinal returns the label character for logical thread n.
func ordinal(n int) byte {
	if n < 0 || n >= len(ordinalChars) {
		panic("acpi: thread ordinal out of range")
	}
	return ordinalChars[n]
}
