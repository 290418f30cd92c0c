//go:build linux

package cpuinfo

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// DeviceMSR reads registers through the msr driver's /dev/cpu/N/msr files.
// The msr module must be loaded and the caller needs CAP_SYS_RAWIO.
type DeviceMSR struct{}

func (DeviceMSR) ReadMSR(cpu int, reg uint32) (uint64, error) {
	path := fmt.Sprintf("/dev/cpu/%d/msr", cpu)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrNoMSR, path, err)
	}
	defer unix.Close(fd)

	var buf [8]byte
	n, err := unix.Pread(fd, buf[:], int64(reg))
	if err != nil {
		return 0, fmt.Errorf("read msr 0x%x on cpu %d: %w", reg, cpu, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read msr 0x%x on cpu %d: short read (%d bytes)", reg, cpu, n)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
