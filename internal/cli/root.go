package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/ownmine/ownmine/internal"
	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/log"
	"github.com/ownmine/ownmine/internal/paths"
	"github.com/ownmine/ownmine/internal/secret"
)

// Represents the root command for the ownmined daemon.
var RootCmd struct {
	Config    string     `short:"c" help:"Configuration file." placeholder:"PATH" type:"path"`
	Socket    string     `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Key       string     `short:"k" help:"File holding the identity that seals secrets." placeholder:"PATH" type:"path"`
	KeySource string     `help:"Where the identity is kept." enum:"file,keyring" default:"file"`
	DryRun    bool       `short:"n" help:"Simulate every side effect."`
	Debug     bool       `short:"d" help:"Enable debug output."`
	Quiet     bool       `short:"q" help:"Suppress informational output."`
	Watch     bool       `short:"w" help:"Reload when the configuration file changes."`
	Start     StartCmd   `cmd:"" default:"1" help:"Start the daemon."`
	Check     CheckCmd   `cmd:"" help:"Validate the configuration file."`
	Seal      SealCmd    `cmd:"" help:"Encrypt plaintext secrets in the configuration file."`
	Version   VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name+"d"),
		kong.Description("The ownmine daemon.\n\nOperates game-server instances and listens on a Unix domain socket for commands from the ownmine client."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Default process logger seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via [Execute].
func DefaultLogger() *slog.Logger {
	return newLogger(internal.IsDebug(), internal.IsQuiet())
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	slog.SetDefault(newLogger(debug, quiet))
}

func newLogger(debug, quiet bool) *slog.Logger {
	opts := log.Options{
		Enabled:  true,
		MinLevel: log.LevelInfo,
		Stream:   os.Stderr,
		Color:    term.IsTerminal(int(os.Stderr.Fd())),
	}
	if debug {
		opts.Mode = execmode.Debug
	} else if quiet {
		opts.MinLevel = log.LevelWarning
	}
	return slog.New(log.NewHandler(opts))
}

// Execution mode requested on the command line or at build time.
func flagMode() execmode.Mode {
	return execmode.New(
		RootCmd.DryRun || internal.IsDryRun(),
		RootCmd.Debug || internal.IsDebug(),
	)
}

// Opens the configuration store selected by the flags.
//
// A missing identity is generated only when create is set.
func openStore(create bool) (*config.Store, error) {
	path := RootCmd.Config
	if path == "" {
		path = paths.ConfigFile()
	}

	keyPath := RootCmd.Key
	if keyPath == "" {
		keyPath = paths.KeyFile()
	}

	source, err := secret.ParseSource(RootCmd.KeySource, keyPath)
	if err != nil {
		return nil, err
	}

	slog.Debug("configuration store", "path", path, "key", source)
	return config.NewStore(path, secret.New(source, create)), nil
}
