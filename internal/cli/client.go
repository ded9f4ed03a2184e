package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"

	"github.com/ownmine/ownmine/internal"
	"github.com/ownmine/ownmine/internal/client"
	"github.com/ownmine/ownmine/internal/result"
)

// Represents the root command for the ownmine client.
var ClientCmd struct {
	Socket  string           `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Timeout time.Duration    `short:"t" help:"Give up after this long." default:"30m"`
	Version kong.VersionFlag `short:"V" help:"Show version information."`
	Args    []string         `arg:"" passthrough:"" help:"Command sent to the daemon, e.g. 'survival start' or 'list'."`
}

// Parses arguments, sends them to the daemon as one line, and prints the
// reply. Returns the process exit code.
func ExecuteClient() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kong.Parse(&ClientCmd,
		kong.Name(internal.Name),
		kong.Description("Sends one command to the ownmine daemon."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
	)

	if ClientCmd.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, ClientCmd.Timeout)
		defer stop()
	}

	res, err := client.Send(ctx, ClientCmd.Socket, strings.Join(ClientCmd.Args, " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, capitalize(err.Error())+".")
		if errors.Is(err, client.ErrNotRunning) {
			return 2
		}
		return 1
	}

	printResult(os.Stdout, res)
	if !res.OK {
		return 1
	}
	return 0
}

// Writes a result. The status line is colored when w is a terminal.
func printResult(w io.Writer, res result.Result) {
	r := lipgloss.NewRenderer(w)

	head := r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")).Render("Success")
	if !res.OK {
		head = r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")).Render("Failure")
	}

	if res.Message == "" {
		fmt.Fprintln(w, head)
		return
	}
	fmt.Fprintf(w, "%s:\n%s\n", head, res.Message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
