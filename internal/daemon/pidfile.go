// Package daemon tracks a background "reviewbot serve" process through a
// PID file.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotRunning     = errors.New("server not running")
)

// Record is what a running server leaves in its PID file.
type Record struct {
	PID     int       `json:"pid"`
	Addr    string    `json:"addr"`
	Started time.Time `json:"started"`
}

// PIDFile manages a PID file for daemon process tracking.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process as serving on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteRecord(Record{PID: os.Getpid(), Addr: addr, Started: time.Now()})
}

// WriteRecord writes rec to the file.
func (p *PIDFile) WriteRecord(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, append(data, '\n'), 0o644)
}

// Read reads the record from the file.
func (p *PIDFile) Read() (Record, error) {
	var rec Record
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil || rec.PID <= 0 {
		return Record{}, fmt.Errorf("invalid PID file content in %s", p.Path)
	}
	return rec, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// Acquire claims the PID file for the current process. A stale file left by
// a dead process is overwritten.
func (p *PIDFile) Acquire(addr string) error {
	if rec, running := p.IsRunning(); running {
		return fmt.Errorf("%w (PID %d, %s)", ErrAlreadyRunning, rec.PID, rec.Addr)
	}
	return p.Write(addr)
}

// Stop sends term, waits up to grace for the process to exit, then sends
// kill. The PID file is removed once the process is gone.
func (p *PIDFile) Stop(term, kill syscall.Signal, grace time.Duration) error {
	rec, running := p.IsRunning()
	if !running {
		_ = p.Remove()
		return ErrNotRunning
	}
	if err := p.Signal(term); err != nil {
		return fmt.Errorf("signal PID %d: %w", rec.PID, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if _, running := p.IsRunning(); !running {
			_ = p.Remove()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := p.Signal(kill); err != nil {
		return fmt.Errorf("kill PID %d: %w", rec.PID, err)
	}
	_ = p.Remove()
	return nil
}
