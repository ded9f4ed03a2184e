package command

import (
	"context"
	"fmt"
	"time"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/log"
	"github.com/ownmine/ownmine/internal/process"
	"github.com/ownmine/ownmine/internal/rcon"
	"github.com/ownmine/ownmine/internal/result"
	"github.com/ownmine/ownmine/internal/transfer"
)

// Configuration and loggers that are replaced together on reload.
type State struct {
	Config *config.Config
	Mode   execmode.Mode // Effective mode: file setting combined with flags.
	Logs   *log.Set
}

// Provides the current state. Each call returns one consistent snapshot.
type StateSource interface {
	State() *State
}

// Reloads the configuration from disk.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Long-lived collaborators shared by every request.
type Deps struct {
	Processes *process.Registry
	Spawner   process.Spawner
	Prober    process.Prober
	Console   *rcon.Client
	Transfer  *transfer.Orchestrator
	Reloader  Reloader

	PollInterval time.Duration // Zero uses [process.PollInterval].
	PollAttempts int           // Zero uses [process.PollAttempts].
	SyncLimit    int           // Concurrent servers in a global sync. Zero means one.
}

// Everything a handler may use while serving one request.
type Env struct {
	Deps

	Command   string
	Config    *config.Config
	Server    config.Server // Zero for global commands.
	Mode      execmode.Mode
	Logs      *log.Set
	Log       *log.Logger // Daemon logger.
	ServerLog *log.Logger // Logger of the target server, or the daemon logger.
}

// Creates an accumulator for this request's workflow.
func (e *Env) steps() *result.Steps {
	return result.NewSteps(e.Mode.IsDryRun())
}

func (e *Env) pollInterval() time.Duration {
	if e.PollInterval > 0 {
		return e.PollInterval
	}
	return process.PollInterval
}

func (e *Env) pollAttempts() int {
	if e.PollAttempts > 0 {
		return e.PollAttempts
	}
	return process.PollAttempts
}

// Checks a precondition of a side effect.
//
// A failed check is an error in a real run. In simulate-only mode it is
// recorded as a note and the workflow continues, so every later step is
// still described.
func check(steps *result.Steps, ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return steps.Check(&preconditionError{msg: fmt.Sprintf(format, args...)})
}

// Runs a workflow and turns its outcome into a result.
func run(env *Env, workflow func(*result.Steps) error) result.Result {
	steps := env.steps()
	if err := workflow(steps); err != nil {
		env.ServerLog.Error(err.Error(), "command", env.Command)
		return result.FromError(err)
	}
	return steps.Success("")
}
