package internal

import (
	"strconv"

	"github.com/ownmine/ownmine/internal/execmode"
)

// Build-time defaults parsed from linker flags.
//
// These only seed the command line. The execution mode that handlers see is
// always the one attached to the loaded configuration.
var (
	quietDefault  bool
	debugDefault  bool
	dryRunDefault bool
)

func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietDefault = v
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugDefault = v
	}
	if v, err := strconv.ParseBool(rawDryRun); err == nil {
		dryRunDefault = v
	}
}

// Returns true if the build was linked with quiet output enabled.
func IsQuiet() bool {
	return quietDefault
}

// Returns true if the build was linked with debug mode enabled.
func IsDebug() bool {
	return debugDefault
}

// Returns true if the build was linked with simulate-only mode enabled.
func IsDryRun() bool {
	return dryRunDefault
}

// Returns the execution mode implied by the linker flags.
func DefaultMode() execmode.Mode {
	var m execmode.Mode
	if dryRunDefault {
		m = m.With(execmode.DryRun)
	}
	if debugDefault {
		m = m.With(execmode.Debug)
	}
	return m
}
