package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/log"
	"github.com/ownmine/ownmine/internal/process"
	"github.com/ownmine/ownmine/internal/rcon"
	"github.com/ownmine/ownmine/internal/system"
	"github.com/ownmine/ownmine/internal/transfer"
)

type staticState struct {
	st *State
}

func (s staticState) State() *State {
	return s.st
}

type fakeSpawner struct {
	mu    sync.Mutex
	specs []process.Spec
	pid   int
	err   error
}

func (s *fakeSpawner) Spawn(spec process.Spec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	return s.pid, s.err
}

func (s *fakeSpawner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.specs)
}

// Reports a pid alive for a number of checks, then dead.
type fakeProber struct {
	mu    sync.Mutex
	alive map[int]int
	state string
}

func (p *fakeProber) Alive(pid int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.alive[pid]
	if n <= 0 {
		return false
	}
	p.alive[pid] = n - 1
	return true
}

func (p *fakeProber) State(int) (string, error) {
	return p.state, nil
}

type fakeConsole struct {
	d *fakeDialer
}

func (c fakeConsole) Execute(command string) (string, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.commands = append(c.d.commands, command)
	return c.d.reply, c.d.execErr
}

func (fakeConsole) Close() error { return nil }

type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	commands []string
	reply    string
	dialErr  error
	execErr  error
}

func (d *fakeDialer) Dial(context.Context, string, string) (rcon.Console, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return fakeConsole{d: d}, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []system.Cmd
	fail  func(system.Cmd) error
}

func (r *fakeRunner) Run(_ context.Context, cmd system.Cmd) (system.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cmd)
	if r.fail != nil {
		if err := r.fail(cmd); err != nil {
			return system.Output{ExitCode: 1}, err
		}
	}
	return system.Output{}, nil
}

func (r *fakeRunner) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, c := range r.calls {
		names = append(names, c.Name)
	}
	return names
}

// Fails every command whose arguments mention needle.
func failWhen(name, needle string, err error) func(system.Cmd) error {
	return func(c system.Cmd) error {
		if c.Name == name && strings.Contains(strings.Join(c.Args, " "), needle) {
			return err
		}
		return nil
	}
}

type fakeReloader struct {
	calls int
	err   error
}

func (r *fakeReloader) Reload(context.Context) error {
	r.calls++
	return r.err
}

// Wiring of one dispatcher over fakes.
type harness struct {
	t          *testing.T
	root       string
	cfg        *config.Config
	dispatcher *Dispatcher
	processes  *process.Registry
	spawner    *fakeSpawner
	prober     *fakeProber
	dialer     *fakeDialer
	runner     *fakeRunner
	reloader   *fakeReloader
	screen     *lockedBuffer
}

// Screen output shared by every logger of a harness.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func defaultServers(t *testing.T, root string) []config.Server {
	t.Helper()
	survival := filepath.Join(root, "srv", "survival")
	require.NoError(t, os.MkdirAll(filepath.Join(survival, "world"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(survival, "server.jar"), []byte("jar"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(survival, "world", "level.dat"), []byte("level"), 0644))

	creative := filepath.Join(root, "srv", "creative")
	require.NoError(t, os.MkdirAll(creative, 0755))

	return []config.Server{
		{
			Name:       "survival",
			Path:       survival,
			Executable: "server.jar",
			Port:       25565,
			User:       "mc",
			RCON:       config.RCON{Enabled: true, Address: "127.0.0.1", Port: 25575, Password: "rconpw"},
			Backup: config.Backup{
				Local: filepath.Join(root, "backups"),
				Remote: config.Remote{
					Enabled: true, Host: "nas", Share: "survival",
					Mirror: "mirror", Archive: "archive",
					Username: "backup", Password: "sharepw",
				},
			},
		},
		{
			Name:       "creative",
			Path:       creative,
			Executable: "server.jar",
			Port:       25566,
			User:       "mc",
			Backup: config.Backup{
				Local: filepath.Join(root, "backups"),
				Remote: config.Remote{
					Enabled: true, Host: "nas", Share: "creative",
					Mirror: "mirror", Archive: "archive",
				},
			},
		},
	}
}

func newHarness(t *testing.T, mode execmode.Mode, servers ...config.Server) *harness {
	t.Helper()
	root := t.TempDir()
	if servers == nil {
		servers = defaultServers(t, root)
	}

	cfg, err := config.New("", mode, config.Log{}, servers)
	require.NoError(t, err)

	h := &harness{
		t:         t,
		root:      root,
		cfg:       cfg,
		processes: process.NewRegistry(),
		spawner:   &fakeSpawner{pid: 4242},
		prober:    &fakeProber{alive: map[int]int{}, state: "sleeping"},
		dialer:    &fakeDialer{},
		runner:    &fakeRunner{},
		reloader:  &fakeReloader{},
		screen:    &lockedBuffer{},
	}

	st := &State{Config: cfg, Mode: mode, Logs: log.NewSet(cfg, 0, h.screen)}
	h.dispatcher = NewDispatcher(NewRegistry(), staticState{st: st}, Deps{
		Processes:    h.processes,
		Spawner:      h.spawner,
		Prober:       h.prober,
		Console:      rcon.New(h.dialer),
		Transfer:     transfer.New(h.runner),
		Reloader:     h.reloader,
		PollInterval: time.Millisecond,
		PollAttempts: 5,
	})
	return h
}

func (h *harness) handle(raw string) (ok bool, msg string) {
	res := h.dispatcher.Handle(context.Background(), raw)
	return res.OK, res.Message
}

var errBoom = errors.New("boom")
