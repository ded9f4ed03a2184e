package command

import (
	"context"
	"slices"

	"github.com/ownmine/ownmine/internal/result"
)

// Whether a command targets one server or the daemon as a whole.
type Scope int

const (
	Global Scope = iota
	Instance
)

func (s Scope) String() string {
	if s == Instance {
		return "instance"
	}
	return "global"
}

// Runs one command. Args exclude the command name and, for instance
// commands, the server name.
type Handler func(ctx context.Context, env *Env, args []string) result.Result

// Entry of the command table.
type Command struct {
	Name    string
	Scope   Scope
	Handler Handler
	Summary string // One-line description.
}

// Immutable table of commands, keyed by name within each scope.
type Registry struct {
	global   map[string]Command
	instance map[string]Command
}

// Builds the daemon's command table.
func NewRegistry() *Registry {
	return newRegistry([]Command{
		{Name: "start", Scope: Instance, Handler: handleStart, Summary: "Start the server process."},
		{Name: "stop", Scope: Instance, Handler: handleStop, Summary: "Stop the server over its remote console."},
		{Name: "exit", Scope: Instance, Handler: handleExit, Summary: "Stop the server, then push it to the share."},
		{Name: "status", Scope: Instance, Handler: handleStatus, Summary: "Report the tracked process and its state."},
		{Name: "exec", Scope: Instance, Handler: handleExec, Summary: "Relay a console command."},
		{Name: "push", Scope: Instance, Handler: handlePush, Summary: "Copy the install directory to the share mirror."},
		{Name: "pull", Scope: Instance, Handler: handlePull, Summary: "Back up locally, then restore from the share mirror."},
		{Name: "backup", Scope: Instance, Handler: handleBackup, Summary: "Make a timestamped local copy."},
		{Name: "sync", Scope: Instance, Handler: handleSync, Summary: "Copy local backups to the share archive."},
		{Name: "list", Scope: Global, Handler: handleList, Summary: "List configured servers."},
		{Name: "reload", Scope: Global, Handler: handleReload, Summary: "Reload the configuration file."},
		{Name: "sync", Scope: Global, Handler: handleSyncAll, Summary: "Sync every configured server."},
	})
}

func newRegistry(cmds []Command) *Registry {
	r := &Registry{
		global:   make(map[string]Command),
		instance: make(map[string]Command),
	}
	for _, c := range cmds {
		if c.Scope == Instance {
			r.instance[c.Name] = c
		} else {
			r.global[c.Name] = c
		}
	}
	return r
}

// Global command with the given name.
func (r *Registry) Global(name string) (Command, bool) {
	c, ok := r.global[name]
	return c, ok
}

// Instance command with the given name.
func (r *Registry) Instance(name string) (Command, bool) {
	c, ok := r.instance[name]
	return c, ok
}

// Every command, sorted by name then scope.
func (r *Registry) Commands() []Command {
	cmds := make([]Command, 0, len(r.global)+len(r.instance))
	for _, c := range r.global {
		cmds = append(cmds, c)
	}
	for _, c := range r.instance {
		cmds = append(cmds, c)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return int(a.Scope) - int(b.Scope)
	})
	return cmds
}
