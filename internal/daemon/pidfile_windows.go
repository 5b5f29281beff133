//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// IsRunning reports the recorded server and whether its process is alive.
func (p *PIDFile) IsRunning() (Record, bool) {
	rec, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return rec, false
	}
	// FindProcess always succeeds on Windows; check with a zero signal.
	return rec, proc.Signal(syscall.Signal(0)) == nil
}

// Signal sends the given signal to the process in the PID file.
// On Windows, only SIGKILL (os.Kill) is reliably supported.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	rec, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", rec.PID, err)
	}
	return proc.Signal(sig)
}
