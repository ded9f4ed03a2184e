package command

import (
	"context"
	"strings"

	"github.com/ownmine/ownmine/internal/result"
)

// Separator between server names in the list reply.
const listSeparator = ";"

func handleList(ctx context.Context, env *Env, args []string) result.Result {
	names := env.Config.Names()
	if len(names) == 0 {
		return result.Success("no servers configured")
	}
	return result.Success(strings.Join(names, listSeparator))
}

func handleReload(ctx context.Context, env *Env, args []string) result.Result {
	if env.Reloader == nil {
		return result.Failure("reload is not available")
	}
	if err := env.Reloader.Reload(ctx); err != nil {
		env.Log.Error("reload failed", "error", err)
		return result.Failuref("reload failed: %s", err)
	}
	env.Log.Info("configuration reloaded")
	return result.Success("configuration reloaded")
}
