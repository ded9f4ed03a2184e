package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

const (

	// Delay between liveness checks while waiting for a server to exit.
	PollInterval = time.Second

	// Number of liveness checks before giving up.
	PollAttempts = 30
)

// Answers questions about a process id.
type Prober interface {
	Alive(pid int) bool
	State(pid int) (string, error)
}

// Reads liveness and run state from the kernel.
type ProcProber struct{}

// Whether pid names a live process. A zombie counts as exited.
func (ProcProber) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	st, err := stat(pid)
	if err != nil {
		// Signal delivery worked, so the process exists even if its stat
		// file is not readable.
		return true
	}
	return st.State != "Z" && st.State != "X"
}

// Run state reported by /proc/<pid>/stat, e.g. "sleeping".
func (ProcProber) State(pid int) (string, error) {
	st, err := stat(pid)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProcess, err)
	}
	return describeState(st.State), nil
}

func stat(pid int) (procfs.ProcStat, error) {
	p, err := procfs.NewProc(pid)
	if err != nil {
		return procfs.ProcStat{}, err
	}
	return p.Stat()
}

func describeState(s string) string {
	switch s {
	case "R":
		return "running"
	case "S":
		return "sleeping"
	case "D":
		return "waiting on disk"
	case "Z":
		return "zombie"
	case "T":
		return "stopped"
	case "t":
		return "tracing stop"
	case "X", "x":
		return "dead"
	case "I":
		return "idle"
	default:
		return s
	}
}

// Polls until pid exits, checking every interval up to attempts times.
//
// Returns nil once the process is gone and [ErrStillRunning] when the
// budget is exhausted. Cancelling ctx ends the wait early with its error.
func WaitExit(ctx context.Context, p Prober, pid int, interval time.Duration, attempts int) error {
	if !p.Alive(pid) {
		return nil
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for range attempts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if !p.Alive(pid) {
			return nil
		}
	}
	return fmt.Errorf("%w: pid %d after %d checks", ErrStillRunning, pid, attempts)
}
