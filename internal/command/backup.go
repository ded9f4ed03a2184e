package command

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/result"
)

func handlePush(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		return pushWorkflow(ctx, env, steps)
	})
}

func pushWorkflow(ctx context.Context, env *Env, steps *result.Steps) error {
	if !env.Server.Backup.Remote.Enabled {
		return remoteDisabled(env.Server, steps)
	}
	return env.Transfer.Push(ctx, env.Server, steps)
}

func handlePull(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		if !env.Server.Backup.Remote.Enabled {
			return remoteDisabled(env.Server, steps)
		}
		return env.Transfer.Pull(ctx, env.Server, steps)
	})
}

func handleSync(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		return syncWorkflow(ctx, env.Server, env, steps)
	})
}

func syncWorkflow(ctx context.Context, srv config.Server, env *Env, steps *result.Steps) error {
	if !srv.Backup.Remote.Enabled {
		return remoteDisabled(srv, steps)
	}
	return env.Transfer.Sync(ctx, srv, steps)
}

func handleBackup(ctx context.Context, env *Env, args []string) result.Result {
	return run(env, func(steps *result.Steps) error {
		dest, err := env.Transfer.Backup(ctx, env.Server, steps)
		if err != nil {
			return err
		}
		env.ServerLog.Info("backup written", "path", dest)
		return nil
	})
}

// Reports a disabled share. In simulate-only mode the transfer is skipped
// after the note, as there is no share to describe.
func remoteDisabled(srv config.Server, steps *result.Steps) error {
	return check(steps, false, "remote backup is not enabled for server %s", srv.Name)
}

// Syncs every server whose share is enabled and summarizes the outcome.
func handleSyncAll(ctx context.Context, env *Env, args []string) result.Result {
	servers := env.Config.Servers
	if len(servers) == 0 {
		return result.Success("no servers configured")
	}

	limit := env.SyncLimit
	if limit <= 0 {
		limit = 1
	}

	type outcome struct {
		skipped bool
		steps   *result.Steps
		err     error
	}
	outcomes := make([]outcome, len(servers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, srv := range servers {
		if !srv.Backup.Remote.Enabled {
			outcomes[i] = outcome{skipped: true}
			continue
		}
		g.Go(func() error {
			steps := env.steps()
			err := env.Transfer.Sync(gctx, srv, steps)
			if err != nil {
				env.Logs.Server(srv.Name).Error(err.Error(), "command", "sync")
			}
			outcomes[i] = outcome{steps: steps, err: err}
			// Failures are collected, not propagated, so one server never
			// cancels the others.
			return nil
		})
	}
	g.Wait()

	summary := env.steps()
	var failed []string
	synced := 0

	for i, o := range outcomes {
		name := servers[i].Name
		switch {
		case o.skipped:
			summary.Add("%s: skipped, remote backup is not enabled", name)
		case o.err != nil:
			failed = append(failed, name)
			summary.Add("%s: %s", name, o.err)
		default:
			synced++
			if o.steps.Len() > 0 {
				summary.Add("%s:\n%s", name, o.steps)
			}
		}
	}

	if len(failed) > 0 {
		return result.Failure(fmt.Sprintf("sync failed for: %s\n%s", strings.Join(failed, ", "), summary))
	}
	return summary.Success("synced %d servers", synced)
}
