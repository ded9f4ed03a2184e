package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
)

// Placeholder in per-server log paths replaced by the server name.
const ServerPlaceholder = "${SRV}"

// Daemon logger plus one logger per configured server.
//
// A Set is built from one configuration and never changes; a reload builds
// a new one.
type Set struct {
	daemon  *Logger
	servers map[string]*Logger
}

// Builds the loggers for cfg.
//
// Mode is the effective execution mode, already combined with any command
// line overrides. Lines go to stream, or os.Stderr when stream is nil.
func NewSet(cfg *config.Config, mode execmode.Mode, stream io.Writer) *Set {
	if stream == nil {
		stream = os.Stderr
	}
	color := isTerminal(stream)

	s := &Set{
		daemon:  New(options(cfg.Log, "", mode, stream, color)),
		servers: make(map[string]*Logger, len(cfg.Servers)),
	}
	for _, srv := range cfg.Servers {
		s.servers[srv.Name] = New(options(srv.Log, srv.Name, mode, stream, color)).With("server", srv.Name)
	}
	return s
}

// Daemon-wide logger.
func (s *Set) Daemon() *Logger {
	return s.daemon
}

// Logger of the named server, or the daemon logger if there is none.
func (s *Set) Server(name string) *Logger {
	if l, ok := s.servers[name]; ok {
		return l
	}
	return s.daemon.With("server", name)
}

// Derives sink options from log settings.
func options(l config.Log, name string, mode execmode.Mode, stream io.Writer, color bool) Options {
	return Options{
		Enabled:  l.Enabled,
		MinLevel: ParseLevel(l.Level),
		File:     filePath(l, name),
		Mode:     mode,
		Stream:   stream,
		Color:    color,
	}
}

// Resolves the log file of a scope, or "" for screen only.
func filePath(l config.Log, name string) string {
	if l.File == "" {
		return ""
	}
	file := expand(l.File, name)
	if l.Path == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(expand(l.Path, name), file)
}

func expand(s, name string) string {
	if name == "" {
		return s
	}
	return strings.ReplaceAll(s, ServerPlaceholder, name)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
