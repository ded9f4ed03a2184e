// Package execmode holds the execution-mode flags shared by the daemon and
// every per-server logger.
package execmode

import "strings"

// Orthogonal execution flags. The bit values match the ones persisted in
// configuration files written by earlier releases.
const (
	DryRun Mode = 1 << 1 // Simulate every side effect instead of performing it.
	Debug  Mode = 1 << 2 // Bypass log level gating and the logger enable switch.
)

// A set of execution flags. The zero value is a normal run.
type Mode uint8

// Creates a mode from individual switches.
func New(dryRun, debug bool) Mode {
	var m Mode
	if dryRun {
		m |= DryRun
	}
	if debug {
		m |= Debug
	}
	return m
}

// Whether side effects must be simulated.
func (m Mode) IsDryRun() bool {
	return m&DryRun != 0
}

// Whether debug output is forced.
func (m Mode) IsDebug() bool {
	return m&Debug != 0
}

// Returns a copy of m with the given flags set.
func (m Mode) With(flags Mode) Mode {
	return m | flags
}

// Returns a copy of m with the given flags cleared.
func (m Mode) Without(flags Mode) Mode {
	return m &^ flags
}

func (m Mode) String() string {
	var parts []string
	if m.IsDryRun() {
		parts = append(parts, "dryrun")
	}
	if m.IsDebug() {
		parts = append(parts, "debug")
	}
	if len(parts) == 0 {
		return "run"
	}
	return strings.Join(parts, "|")
}
