package cli

import (
	"context"
	"log/slog"

	"github.com/ownmine/ownmine/internal/command"
	"github.com/ownmine/ownmine/internal/daemon"
	"github.com/ownmine/ownmine/internal/process"
	"github.com/ownmine/ownmine/internal/rcon"
	"github.com/ownmine/ownmine/internal/system"
	"github.com/ownmine/ownmine/internal/transfer"
)

// Represents the 'ownmined start' command.
type StartCmd struct {
	SyncLimit int `help:"Servers synced concurrently by a global sync." default:"1"`
}

// Executes the start command.
//
// Loads the configuration, opens the control socket, and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	store, err := openStore(true)
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Config{
		SocketPath: RootCmd.Socket,
		Store:      store,
		Mode:       flagMode(),
		Watch:      RootCmd.Watch,
		Deps:       c.deps(),
	})
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		return err
	}

	slog.Info("ownmined is running", "socket", d.SocketPath())

	<-ctx.Done()

	slog.Info("shutting down")
	return d.Stop()
}

// Builds the production collaborators of the command handlers.
func (c *StartCmd) deps() command.Deps {
	procs := process.NewRegistry()

	return command.Deps{
		Processes: procs,
		Spawner: process.ExecSpawner{
			OnExit: func(pid int, err error) {
				forget(procs, pid, err)
			},
		},
		Prober:    process.ProcProber{},
		Console:   rcon.New(rcon.GorconDialer{Timeout: rcon.DefaultTimeout}),
		Transfer:  transfer.New(system.ExecRunner{}),
		SyncLimit: c.SyncLimit,
	}
}

// Drops the registry entry of a child that exited, unless the name has
// since been bound to another process.
func forget(procs *process.Registry, pid int, err error) {
	for name, p := range procs.Snapshot() {
		if p == pid && procs.DeleteIf(name, pid) {
			slog.Info("server process exited", "server", name, "pid", pid, "error", err)
		}
	}
}
