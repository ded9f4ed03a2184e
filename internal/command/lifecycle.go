package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ownmine/ownmine/internal/log"
	"github.com/ownmine/ownmine/internal/process"
	"github.com/ownmine/ownmine/internal/result"
)

// Console command that shuts a server down.
const stopCommand = "stop"

func handleStart(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		return startWorkflow(env, steps)
	})
}

func startWorkflow(env *Env, steps *result.Steps) error {
	srv := env.Server
	spec := process.JavaSpec(srv)

	if pid, ok := env.Processes.Get(srv.Name); ok && env.Prober.Alive(pid) {
		return check(steps, false, "server %s is already running (pid %d)", srv.Name, pid)
	}

	_, statErr := os.Stat(spec.Artifact)
	if err := check(steps, spec.Artifact != "" && statErr == nil, "executable not found for server %s: %s", srv.Name, spec.Artifact); err != nil {
		return err
	}

	if steps.DryRun() {
		steps.Simulated("would run in %s: %s", spec.Dir, spec.Cmd())
		return nil
	}

	pid, err := env.Spawner.Spawn(spec)
	if err != nil {
		return fmt.Errorf("failed to start server %s: %w", srv.Name, err)
	}
	if !env.Processes.Set(srv.Name, pid) {
		env.ServerLog.Warning("server started but no longer configured; not tracking it", "pid", pid)
		steps.Add("started server %s (pid %d), but it was removed from the configuration and is not tracked", srv.Name, pid)
		return nil
	}
	env.ServerLog.Info("server started", "pid", pid)

	steps.Add("started server %s (pid %d)", srv.Name, pid)
	return nil
}

func handleStop(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		return stopWorkflow(ctx, env, steps)
	})
}

// Asks the server to stop over its console and waits for the tracked
// process to exit.
func stopWorkflow(ctx context.Context, env *Env, steps *result.Steps) error {
	srv := env.Server

	if err := check(steps, srv.RCON.Enabled, "RCON is not enabled for server %s", srv.Name); err != nil {
		return err
	}

	pid, tracked := env.Processes.Get(srv.Name)

	if steps.DryRun() {
		steps.Simulated("would send '%s' over RCON to %s", stopCommand, srv.RCON.Addr())
		if tracked {
			steps.Simulated("would wait up to %s for pid %d to exit", env.pollInterval()*time.Duration(env.pollAttempts()), pid)
		}
		return nil
	}

	reply, err := env.Console.Send(ctx, srv.RCON, stopCommand)
	if err != nil {
		return fmt.Errorf("failed to stop server %s: %w", srv.Name, err)
	}
	if reply != "" {
		env.ServerLog.Print(log.LevelMessage, reply)
		steps.Add("%s", reply)
	}

	if !tracked {
		steps.Add("sent stop to server %s; no tracked process, exit could not be verified", srv.Name)
		return nil
	}

	err = process.WaitExit(ctx, env.Prober, pid, env.pollInterval(), env.pollAttempts())
	if errors.Is(err, process.ErrStillRunning) {
		return fmt.Errorf("server %s is still running (pid %d)", srv.Name, pid)
	}
	if err != nil {
		return fmt.Errorf("failed waiting for server %s: %w", srv.Name, err)
	}

	env.Processes.DeleteIf(srv.Name, pid)
	env.ServerLog.Info("server stopped", "pid", pid)

	steps.Add("stopped server %s (pid %d)", srv.Name, pid)
	return nil
}

func handleExit(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		if err := stopWorkflow(ctx, env, steps); err != nil {
			return fmt.Errorf("exit failed at stop: %w", err)
		}
		if err := pushWorkflow(ctx, env, steps); err != nil {
			return fmt.Errorf("exit failed at push: %w", err)
		}
		return nil
	})
}

func handleStatus(ctx context.Context, env *Env, args []string) result.Result {
	srv := env.Server

	pid, ok := env.Processes.Get(srv.Name)
	if !ok {
		return result.Successf("server %s is not running", srv.Name)
	}

	if env.Mode.IsDryRun() {
		return result.Successf("server %s is tracked with pid %d", srv.Name, pid)
	}

	if !env.Prober.Alive(pid) {
		env.Processes.DeleteIf(srv.Name, pid)
		return result.Successf("server %s is not running (pid %d exited)", srv.Name, pid)
	}

	state, err := env.Prober.State(pid)
	if err != nil {
		return result.Successf("server %s is running (pid %d, state unknown: %s)", srv.Name, pid, err)
	}
	return result.Successf("server %s is running (pid %d, %s)", srv.Name, pid, state)
}

func handleExec(ctx context.Context, env *Env, args []string) result.Result {
	if len(args) == 0 {
		return result.Failure("nothing to execute")
	}

	return run(env, func(steps *result.Steps) error {
		srv := env.Server
		line := strings.Join(args, " ")

		if err := check(steps, srv.RCON.Enabled, "RCON is not enabled for server %s", srv.Name); err != nil {
			return err
		}

		if steps.DryRun() {
			steps.Simulated("would send '%s' over RCON to %s", line, srv.RCON.Addr())
			return nil
		}

		reply, err := env.Console.Send(ctx, srv.RCON, line)
		if err != nil {
			return fmt.Errorf("failed to execute '%s' on server %s: %w", line, srv.Name, err)
		}
		env.ServerLog.Info("console command sent", "line", line)
		if reply != "" {
			env.ServerLog.Print(log.LevelMessage, reply)
		}

		if reply == "" {
			reply = "(no reply)"
		}
		steps.Add("%s", reply)
		return nil
	})
}
