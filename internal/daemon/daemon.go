package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ownmine/ownmine/internal/command"
	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/log"
	"github.com/ownmine/ownmine/internal/paths"
	"github.com/ownmine/ownmine/internal/protocol"
	"github.com/ownmine/ownmine/internal/result"
)

const (

	// File mode applied to the Unix socket. Only the owner may connect.
	socketMode = 0600

	// Time a client has to send its request line.
	DefaultReadTimeout = 10 * time.Second

	// Time allowed for writing a response.
	writeTimeout = 10 * time.Second
)

// Holds daemon configuration.
type Config struct {
	SocketPath  string        // Unix socket path. Empty uses [paths.Socket].
	PIDFile     string        // PID file path. Empty uses [paths.PIDFile].
	Store       *config.Store // Configuration file. Required.
	Mode        execmode.Mode // Flags combined with the mode stored in the file.
	LogStream   io.Writer     // Screen output of the domain loggers. Empty uses os.Stderr.
	ReadTimeout time.Duration // Zero uses [DefaultReadTimeout].
	Watch       bool          // Reload when the configuration file changes.
	Deps        command.Deps  // Collaborators of the command handlers. The reloader is set by the daemon.
}

// Listens on a Unix domain socket and dispatches commands.
type Daemon struct {
	socketPath  string
	pidFile     string
	store       *config.Store
	flags       execmode.Mode
	stream      io.Writer
	readTimeout time.Duration
	watch       bool
	deps        command.Deps
	dispatcher  *command.Dispatcher

	state    atomic.Pointer[command.State]
	reloadMu sync.Mutex // Serializes reloads.

	mu       sync.Mutex // Protects the fields below.
	running  bool
	listener net.Listener
	watcher  *watcher
	done     chan struct{}
	conns    sync.WaitGroup
}

// Creates a daemon and loads its configuration.
//
// A configuration that cannot be loaded is fatal. Plaintext secrets found in
// the file are sealed right away, except in simulate-only mode.
func New(cfg Config) (*Daemon, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: configuration store is required", ErrDaemon)
	}

	d := &Daemon{
		socketPath:  cfg.SocketPath,
		pidFile:     cfg.PIDFile,
		store:       cfg.Store,
		flags:       cfg.Mode,
		stream:      cfg.LogStream,
		readTimeout: cfg.ReadTimeout,
		watch:       cfg.Watch,
		deps:        cfg.Deps,
	}
	if d.socketPath == "" {
		d.socketPath = paths.Socket()
	}
	if d.pidFile == "" {
		d.pidFile = paths.PIDFile()
	}
	if d.stream == nil {
		d.stream = os.Stderr
	}
	if d.readTimeout <= 0 {
		d.readTimeout = DefaultReadTimeout
	}

	st, err := d.load()
	if err != nil {
		return nil, err
	}
	d.state.Store(st)

	if d.deps.Processes != nil {
		d.deps.Processes.Prune(st.Config.Names())
	}

	registry := command.NewRegistry()
	for _, c := range registry.Commands() {
		slog.Debug("command registered", "name", c.Name, "scope", c.Scope.String(), "summary", c.Summary)
	}

	d.deps.Reloader = d
	d.dispatcher = command.NewDispatcher(registry, d, d.deps)

	return d, nil
}

// Current configuration snapshot.
func (d *Daemon) State() *command.State {
	return d.state.Load()
}

// Path of the control socket.
func (d *Daemon) SocketPath() string {
	return d.socketPath
}

// Loads the configuration file and builds the state derived from it.
func (d *Daemon) load() (*command.State, error) {
	cfg, err := d.store.Load()
	if err != nil {
		return nil, err
	}

	mode := cfg.Mode.With(d.flags)
	st := &command.State{
		Config: cfg,
		Mode:   mode,
		Logs:   log.NewSet(cfg, mode, d.stream),
	}

	if cfg.HasPlaintextSecrets() {
		if mode.IsDryRun() {
			slog.Warn("configuration holds plaintext secrets; not sealing in dry-run", "path", d.store.Path())
		} else if err := d.store.Save(cfg); err != nil {
			slog.Error("failed to seal plaintext secrets", "path", d.store.Path(), "error", err)
		} else {
			slog.Info("sealed plaintext secrets", "path", d.store.Path())
		}
	}

	return st, nil
}

// Opens the Unix socket and begins accepting connections.
//
// Calling Start on a running daemon does nothing.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	listener, err := listen(d.socketPath)
	if err != nil {
		return err
	}

	if err := writePID(d.pidFile); err != nil {
		slog.Warn("failed to write PID file", "path", d.pidFile, "error", err)
	}

	d.listener = listener
	d.done = make(chan struct{})
	d.running = true

	if d.watch {
		w, err := newWatcher(d.store.Path(), func() {
			if err := d.Reload(context.Background()); err != nil {
				slog.Error("reload after file change failed", "error", err)
			}
		})
		if err != nil {
			slog.Warn("configuration watch disabled", "error", err)
		} else {
			d.watcher = w
		}
	}

	slog.Info("daemon listening on socket", "path", d.socketPath, "mode", d.State().Mode.String())

	go d.accept(listener, d.done)
	return nil
}

// Removes any stale socket from a previous run, listens, and restricts the
// socket to its owner.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemon, err)
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: failed to remove stale socket %s: %w", ErrDaemon, socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", ErrDaemon, socketPath, err)
	}

	if err := os.Chmod(socketPath, socketMode); err != nil {
		listener.Close()
		os.Remove(socketPath)
		return nil, fmt.Errorf("%w: failed to chmod socket %s: %w", ErrDaemon, socketPath, err)
	}

	return listener, nil
}

// Stops accepting connections, waits for in-flight requests, removes the
// socket and PID file, and saves the configuration.
//
// The save is the shutdown hook that keeps secrets sealed on disk. It is
// skipped in simulate-only mode and when the file changed on disk since it
// was last read, so external edits are never overwritten. Calling Stop on a
// stopped daemon does nothing.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.done)
	d.listener.Close()
	if d.watcher != nil {
		d.watcher.Close()
		d.watcher = nil
	}
	d.mu.Unlock()

	d.conns.Wait()

	os.Remove(d.socketPath)
	os.Remove(d.pidFile)

	slog.Info("daemon stopped")
	return d.saveOnShutdown()
}

func (d *Daemon) saveOnShutdown() error {
	st := d.State()
	if st.Mode.IsDryRun() {
		slog.Debug("skipping configuration save in dry-run")
		return nil
	}

	changed, err := d.store.Changed()
	if err != nil {
		return err
	}
	if changed {
		slog.Warn("configuration changed on disk; not saving on shutdown", "path", d.store.Path())
		return nil
	}
	return d.store.Save(st.Config)
}

// Blocks until the daemon stops.
func (d *Daemon) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Whether the daemon is accepting connections.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Rereads the configuration file and swaps in the new state.
//
// Loggers are rebuilt and registry entries of servers that are no longer
// configured are dropped. A failed load keeps the current state.
func (d *Daemon) Reload(ctx context.Context) error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	st, err := d.load()
	if err != nil {
		return err
	}
	d.state.Store(st)

	if d.deps.Processes != nil {
		if dropped := d.deps.Processes.Prune(st.Config.Names()); len(dropped) > 0 {
			slog.Info("stopped tracking removed servers", "servers", strings.Join(dropped, ","))
		}
	}

	slog.Info("configuration reloaded", "path", d.store.Path(), "servers", len(st.Config.Servers))
	return nil
}

// Accepts connections in a loop until the daemon stops.
func (d *Daemon) accept(listener net.Listener, done chan struct{}) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		if !d.track(done) {
			conn.Close()
			return
		}
		go func() {
			defer d.conns.Done()
			d.handle(conn)
		}()
	}
}

// Counts a new connection unless the listener it came from has been
// stopped. Stop flips the running state under the same lock before it
// waits, so no connection is added once the wait has begun.
func (d *Daemon) track(done chan struct{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.done != done {
		return false
	}
	d.conns.Add(1)
	return true
}

// Processes a single connection.
//
// Reads one request line, dispatches it, and writes exactly one response.
// The connection is closed after one exchange.
func (d *Daemon) handle(conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()
	res := d.serve(conn, id)

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := protocol.WriteResponse(conn, res); err != nil {
		slog.Error("write response failed", "request", id, "error", err)
	}
}

// Produces the result for one connection. Never panics.
func (d *Daemon) serve(conn net.Conn, id string) (res result.Result) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("request panicked", "request", id, "panic", p)
			res = result.Failuref("internal error: %v", p)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))
	line, err := protocol.ReadRequest(conn)
	if err != nil {
		slog.Warn("bad request", "request", id, "error", err)
		return result.FromError(err)
	}
	conn.SetReadDeadline(time.Time{})

	name, _, _ := strings.Cut(line, " ")
	slog.Info("command received", "request", id, "command", name)

	res = d.dispatcher.Handle(context.Background(), line)

	slog.Debug("command handled", "request", id, "command", name, "ok", res.OK)
	return res
}

// Writes the daemon PID so the client and init scripts can find it.
func writePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), paths.DefaultFileMode)
}
