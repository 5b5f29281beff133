//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// IsRunning reports the recorded server and whether its process is alive.
func (p *PIDFile) IsRunning() (Record, bool) {
	rec, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	return rec, syscall.Kill(rec.PID, 0) == nil
}

// Signal sends the given signal to the process in the PID file.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	rec, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(rec.PID, sig)
}
