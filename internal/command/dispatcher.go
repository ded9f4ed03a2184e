package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ownmine/ownmine/internal/result"
)

// Routes raw requests to handlers.
//
// A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	state    StateSource
	deps     Deps
}

// Creates a dispatcher over the given command table.
func NewDispatcher(registry *Registry, state StateSource, deps Deps) *Dispatcher {
	return &Dispatcher{registry: registry, state: state, deps: deps}
}

// Parses and runs one request.
//
// The command and, for instance commands, the server are resolved before
// any handler runs. A panicking handler is recovered into a failure.
func (d *Dispatcher) Handle(ctx context.Context, raw string) (res result.Result) {
	st := d.state.State()

	cmd, env, args, err := d.prepare(st, raw)
	if err != nil {
		slog.Debug("request rejected", "error", err)
		return result.FromError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("handler panicked", "command", cmd.Name, "panic", p)
			res = result.FromError(commandErrorf("error while executing '%s': %v", cmd.Name, p))
		}
	}()

	env.Log.Debug("dispatching", "command", cmd.Name, "scope", cmd.Scope.String(), "server", env.Server.Name, "mode", st.Mode.String())

	res = cmd.Handler(ctx, env, args)
	if st.Mode.IsDryRun() {
		res = result.WithDryRunMarker(res)
	}
	return res
}

// Resolves the command and its target server against one state snapshot.
// Every returned error wraps [ErrCommand].
func (d *Dispatcher) prepare(st *State, raw string) (Command, *Env, []string, error) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return Command{}, nil, nil, commandErrorf("empty command")
	}

	tokens = d.canonical(st, tokens)

	cmd, ok := d.resolve(tokens)
	if !ok {
		return Command{}, nil, nil, commandErrorf("unknown command '%s'", tokens[0])
	}

	env := &Env{
		Deps:    d.deps,
		Command: cmd.Name,
		Config:  st.Config,
		Mode:    st.Mode,
		Logs:    st.Logs,
		Log:     st.Logs.Daemon(),
	}
	env.ServerLog = env.Log

	args := tokens[1:]
	if cmd.Scope == Instance {
		if len(args) == 0 {
			return Command{}, nil, nil, commandErrorf("missing server name for '%s'", cmd.Name)
		}
		srv, ok := st.Config.Server(args[0])
		if !ok {
			return Command{}, nil, nil, commandErrorf("server '%s' is not configured", args[0])
		}
		env.Server = srv
		env.ServerLog = st.Logs.Server(srv.Name)
		args = args[1:]
	}

	return cmd, env, args, nil
}

// Rewrites "<server> <command> ..." to "<command> <server> ...".
func (d *Dispatcher) canonical(st *State, tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	if _, ok := d.registry.Global(tokens[0]); ok {
		return tokens
	}
	if _, ok := d.registry.Instance(tokens[0]); ok {
		return tokens
	}
	if !st.Config.Has(tokens[0]) {
		return tokens
	}
	if _, ok := d.registry.Instance(tokens[1]); !ok {
		return tokens
	}

	swapped := make([]string, len(tokens))
	copy(swapped, tokens)
	swapped[0], swapped[1] = tokens[1], tokens[0]
	return swapped
}

// Finds the command named by the first token. A name registered in both
// scopes resolves to the instance form when a server argument follows.
func (d *Dispatcher) resolve(tokens []string) (Command, bool) {
	name := tokens[0]
	global, hasGlobal := d.registry.Global(name)
	instance, hasInstance := d.registry.Instance(name)

	switch {
	case hasInstance && (!hasGlobal || len(tokens) > 1):
		return instance, true
	case hasGlobal:
		return global, true
	default:
		return Command{}, false
	}
}
