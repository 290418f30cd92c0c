package acpi

import (
	"encoding/binary"
	"fmt"
)

// tableWriter appends template copies into a buffer that was sized up front.
// Writing past the end, or finishing short of it, means the size calculator
// and the assembler disagree.
type tableWriter struct {
	buf []byte
	off int
}

func newTableWriter(size int) *tableWriter {
	return &tableWriter{buf: make([]byte, size)}
}

func (w *tableWriter) Append(b []byte) {
	if w.off+len(b) > len(w.buf) {
		panic(fmt.Sprintf("acpi: table overflow: writing %d bytes at %d of %d", len(b), w.off, len(w.buf)))
	}
	w.off += copy(w.buf[w.off:], b)
}

// Bytes returns the assembled table once it has been filled exactly.
func (w *tableWriter) Bytes() []byte {
	if w.off != len(w.buf) {
		panic(fmt.Sprintf("acpi: table size mismatch: wrote %d of %d bytes", w.off, len(w.buf)))
	}
	return w.buf
}

// putScopeLength writes the two-byte PkgLength used by the CpuPm templates.
// size is the content size the grammar expects, including any per-template
// adjustment made by the caller. The encoding holds at most 12 bits.
func putScopeLength(dst []byte, size int) {
	if size < 0 || size > maxScopeLength {
		panic(fmt.Sprintf("acpi: scope length %d does not fit the two-byte encoding", size))
	}
	dst[0] = (0x40 | byte(size&0x0F)) - 1
	dst[1] = byte((size >> 4) & 0xFF)
}

// Finalize writes the table length into the header and recomputes the
// checksum so that all bytes sum to zero.
func Finalize(table []byte) {
	if len(table) < headerSize {
		panic("acpi: table shorter than its header")
	}
	putUint32(table[headerLengthOffset:], uint32(len(table)))
	table[headerChecksumOffset] = 0
	table[headerChecksumOffset] = checksum(table)
}

func checksum(b []byte) byte {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return byte(0 - sum)
}

func putUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}
