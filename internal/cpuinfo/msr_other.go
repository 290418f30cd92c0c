//go:build !linux

package cpuinfo

// DeviceMSR is unavailable outside Linux.
type DeviceMSR struct{}

func (DeviceMSR) ReadMSR(cpu int, reg uint32) (uint64, error) {
	return 0, ErrNoMSR
}
