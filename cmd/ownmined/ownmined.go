package main

import (
	"log/slog"
	"os"

	"github.com/ownmine/ownmine/internal"
	"github.com/ownmine/ownmine/internal/cli"
)

// The entry point for the ownmined daemon.
//
// Initializes logging, displays startup information, and executes the root
// command. If any error occurs during execution, it exits with a non-zero code.
func main() {
	slog.SetDefault(cli.DefaultLogger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("ownmined is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
