package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// Placeholder shown in place of redacted values.
const Redacted = "***"

// Timeout applied when a command does not set one.
const DefaultTimeout = time.Minute

// One invocation of an external program.
type Cmd struct {
	Name    string        // Program to run, resolved through PATH.
	Args    []string      // Arguments, not including the program name.
	Env     []string      // Extra KEY=VALUE pairs added to the daemon environment.
	Dir     string        // Working directory. Empty uses the daemon's.
	Redact  []string      // Values replaced by [Redacted] when rendered.
	Timeout time.Duration // Zero uses [DefaultTimeout].
}

// Shell-quoted command line with redacted values masked.
//
// Environment entries are rendered as a leading VAR=value prefix so a
// dry-run report shows the full invocation.
func (c Cmd) String() string {
	words := make([]string, 0, len(c.Env)+len(c.Args)+1)
	for _, kv := range c.Env {
		k, v, _ := strings.Cut(kv, "=")
		words = append(words, k+"="+shellescape.Quote(c.redact(v)))
	}

	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	for _, a := range c.Args {
		argv = append(argv, c.redact(a))
	}

	line := shellescape.QuoteCommand(argv)
	if len(words) == 0 {
		return line
	}
	return strings.Join(words, " ") + " " + line
}

// Masks every occurrence of a redacted value in s.
func (c Cmd) redact(s string) string {
	for _, secret := range c.Redact {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, Redacted)
		}
	}
	return s
}

// Output of a finished command.
type Output struct {
	ExitCode int
	Combined string // Standard output and error, interleaved.
}

// Runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Output, error)
}

// Runs commands with [os/exec].
type ExecRunner struct{}

// Runs cmd and waits for it, bounded by its timeout.
//
// A non-zero exit is an error wrapping [ErrCommand] whose message carries
// the trimmed output. Running past the timeout yields [ErrTimeout].
func (ExecRunner) Run(ctx context.Context, cmd Cmd) (Output, error) {
	if cmd.Name == "" {
		return Output{ExitCode: -1}, fmt.Errorf("%w: empty program name", ErrCommand)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), slices.Clone(cmd.Env)...)
	}

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	err := c.Run()
	out := Output{Combined: strings.TrimSpace(buf.String())}

	if ctx.Err() == context.DeadlineExceeded {
		out.ExitCode = -1
		return out, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Name, timeout)
	}

	if err != nil {
		out.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		detail := cmd.redact(out.Combined)
		if detail == "" {
			detail = err.Error()
		}
		return out, fmt.Errorf("%w: %s: %s", ErrCommand, cmd.Name, detail)
	}

	return out, nil
}
