package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/system"
)

// Runtime used to launch server artifacts.
const Java = "java"

// Fixed heap arguments passed to every server.
var MemoryArgs = []string{"-Xms1024M", "-Xmx1024M"}

// What to launch for one server.
type Spec struct {
	Program  string   // Executable run, e.g. java.
	Args     []string // Arguments, not including the program.
	Dir      string   // Working directory.
	User     string   // Owning OS user. Applied only when the daemon runs as root.
	Artifact string   // File that must exist before launching.
}

// Builds the launch spec of a server: java with the fixed heap arguments
// running the server's jar from its install directory.
func JavaSpec(srv config.Server) Spec {
	artifact := ArtifactPath(srv)

	args := make([]string, 0, len(MemoryArgs)+3)
	args = append(args, MemoryArgs...)
	args = append(args, "-jar", artifact, "nogui")

	return Spec{
		Program:  Java,
		Args:     args,
		Dir:      srv.Path,
		User:     srv.User,
		Artifact: artifact,
	}
}

// Absolute path of a server's executable artifact. Relative values are
// resolved against the install path.
func ArtifactPath(srv config.Server) string {
	if srv.Executable == "" || filepath.IsAbs(srv.Executable) {
		return srv.Executable
	}
	return filepath.Join(srv.Path, srv.Executable)
}

// Command form of the spec, used to render dry-run reports.
func (s Spec) Cmd() system.Cmd {
	return system.Cmd{Name: s.Program, Args: s.Args, Dir: s.Dir}
}

// Launches server processes.
type Spawner interface {
	Spawn(spec Spec) (int, error)
}

// Launches processes with [os/exec].
//
// Each child gets its own session so it outlives the client that asked for
// it and never receives the daemon's terminal signals. The child is waited
// on in the background, so an exited server never lingers as a zombie.
type ExecSpawner struct {
	OnExit func(pid int, err error) // Called after the child exits. Optional.
}

// Starts spec and returns the child's process id.
func (s ExecSpawner) Spawn(spec Spec) (int, error) {
	if _, err := os.Stat(spec.Artifact); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrExecutableNotFound, spec.Artifact)
	}

	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	cred, err := credential(spec.User)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcess, err)
	}
	cmd.SysProcAttr.Credential = cred

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcess, err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		slog.Debug("server process exited", "pid", pid, "error", err)
		if s.OnExit != nil {
			s.OnExit(pid, err)
		}
	}()

	return pid, nil
}

// Credentials of the named user, or nil when no switch is needed or
// possible.
func credential(name string) (*syscall.Credential, error) {
	if name == "" || os.Geteuid() != 0 {
		return nil, nil
	}

	u, err := user.Lookup(name)
	if err != nil {
		return nil, err
	}
	if u.Uid == "0" {
		return nil, nil
	}

	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, err
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, err
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
