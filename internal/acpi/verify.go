package acpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrLength    = errors.New("acpi: declared length does not match table size")
	ErrChecksum  = errors.New("acpi: checksum mismatch")
	ErrSignature = errors.New("acpi: not an SSDT")
	ErrLayout    = errors.New("acpi: unexpected table layout")
)

// Verify checks the header of a finalized table: signature, declared length
// and checksum.
func Verify(table []byte) error {
	if len(table) < headerSize {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrLength, len(table))
	}
	if string(table[:4]) != "SSDT" {
		return fmt.Errorf("%w: signature %q", ErrSignature, table[:4])
	}
	if declared := binary.LittleEndian.Uint32(table[headerLengthOffset:]); int(declared) != len(table) {
		return fmt.Errorf("%w: declared %d, have %d", ErrLength, declared, len(table))
	}
	if want := RecomputeChecksum(table); table[headerChecksumOffset] != want {
		return fmt.Errorf("%w: stored 0x%02x, computed 0x%02x", ErrChecksum, table[headerChecksumOffset], want)
	}
	return nil
}

// RecomputeChecksum returns the checksum of the first declared-length bytes
// of table with the checksum byte treated as zero.
func RecomputeChecksum(table []byte) byte {
	length := int(binary.LittleEndian.Uint32(table[headerLengthOffset:]))
	if length > len(table) {
		length = len(table)
	}
	var sum uint8
	for i, v := range table[:length] {
		if i == headerChecksumOffset {
			continue
		}
		sum += v
	}
	return byte(0 - sum)
}

// Info is what Decode recovers from a generated table.
type Info struct {
	Length   int
	Checksum byte
	OEMID    string
	TableID  string

	SMBusDevice bool

	// Processors lists the names declared in Scope (\_PR_).
	Processors []string

	Cores   int
	PStates []PState

	// RedirectedCPUs counts the per-thread scopes that point back at
	// CPU0's APSS.
	RedirectedCPUs int
}

// Decode verifies table and reads it back by walking the templates in
// emission order. It only understands tables produced by Generate.
func Decode(table []byte) (*Info, error) {
	if err := Verify(table); err != nil {
		return nil, err
	}

	info := &Info{
		Length:   len(table),
		Checksum: table[headerChecksumOffset],
		OEMID:    string(bytes.TrimRight(table[10:16], "\x00")),
		TableID:  string(bytes.TrimRight(table[16:24], "\x00")),
	}

	rest := table[headerSize:]

	if len(rest) >= scopeSMBusSize && bytes.Equal(rest[:scopeSMBusSize], scopeSMBus[:]) {
		info.SMBusDevice = true
		rest = rest[scopeSMBusSize:]
	}

	if hasPrefixAt(rest, scopePR[scopeLengthOffset+2:], scopeLengthOffset+2) && rest[0] == scopePR[0] {
		rest = rest[scopePRSize:]
		for len(rest) >= processorDeclSize && rest[0] == processorDecl[0] && rest[1] == processorDecl[1] {
			name := string(rest[processorLabelOffset : processorLabelOffset+4])
			info.Processors = append(info.Processors, name)
			rest = rest[processorDeclSize:]
		}
	}

	if len(rest) == 0 {
		return info, nil
	}

	if !hasPrefixAt(rest, scopePRCPU0[scopeLengthOffset+2:scopePRCPU0LabelOffset], scopeLengthOffset+2) {
		return nil, fmt.Errorf("%w: expected \\_PR.CPU0 scope at offset %d", ErrLayout, len(table)-len(rest))
	}
	rest = rest[scopePRCPU0Size:]

	if len(rest) < nameAPSNSize+nameAPSSSize || !bytes.Equal(rest[:apsnValueIndex], nameAPSN[:apsnValueIndex]) {
		return nil, fmt.Errorf("%w: expected APSN", ErrLayout)
	}
	info.Cores = int(rest[apsnValueIndex])
	rest = rest[nameAPSNSize:]

	if !bytes.Equal(rest[:apssLengthOffset], nameAPSS[:apssLengthOffset]) {
		return nil, fmt.Errorf("%w: expected APSS", ErrLayout)
	}
	count := int(rest[apssCountIndex])
	rest = rest[nameAPSSSize:]

	if len(rest) < count*pstateSize+methodACSTSize {
		return nil, fmt.Errorf("%w: %d P-states do not fit", ErrLayout, count)
	}
	for i := 0; i < count; i++ {
		p, err := DecodePState(rest[:pstateSize])
		if err != nil {
			return nil, fmt.Errorf("P-state %d: %w", i, err)
		}
		info.PStates = append(info.PStates, p)
		rest = rest[pstateSize:]
	}

	if !bytes.Equal(rest[:methodACSTSize], methodACST[:]) {
		return nil, fmt.Errorf("%w: expected ACST method", ErrLayout)
	}
	rest = rest[methodACSTSize:]

	for len(rest) >= scopeCPUNSize {
		if rest[0] != scopeCPUN[0] || rest[1] != scopeCPUN[1] {
			break
		}
		info.RedirectedCPUs++
		rest = rest[scopeCPUNSize:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrLayout, len(rest))
	}
	return info, nil
}

func hasPrefixAt(b, prefix []byte, off int) bool {
	return len(b) >= off+len(prefix) && bytes.Equal(b[off:off+len(prefix)], prefix)
}
