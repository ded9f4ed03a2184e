package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/result"
	"github.com/ownmine/ownmine/internal/system"
)

const (

	// Time allowed for one rsync pass.
	DefaultSyncTimeout = 10 * time.Minute

	// Time allowed for mounting or unmounting a share.
	DefaultMountTimeout = time.Minute

	// Mount point shown in simulated command lines. Nothing is created.
	dryRunMountPoint = "/tmp/dryrun"
)

// Runs transfer workflows with an external command runner.
type Orchestrator struct {
	runner       system.Runner
	SyncTimeout  time.Duration
	MountTimeout time.Duration

	now       func() time.Time
	mkdirTemp func(dir, pattern string) (string, error)
}

// Creates an orchestrator that runs mount, rsync and umount through runner.
func New(runner system.Runner) *Orchestrator {
	return &Orchestrator{
		runner:       runner,
		SyncTimeout:  DefaultSyncTimeout,
		MountTimeout: DefaultMountTimeout,
		now:          time.Now,
		mkdirTemp:    os.MkdirTemp,
	}
}

// Direction and subpath of one remote transfer.
type plan struct {
	verb  string // Past tense used in messages.
	src   func(mnt string) string
	dst   func(mnt string) string
	chown bool
}

// Copies the install directory to the mirror subpath of the share, owned
// by the server user.
func (o *Orchestrator) Push(ctx context.Context, srv config.Server, steps *result.Steps) error {
	return o.remote(ctx, srv, steps, plan{
		verb:  "pushed",
		src:   func(string) string { return srv.Path },
		dst:   func(mnt string) string { return filepath.Join(mnt, srv.Backup.Remote.Mirror) },
		chown: true,
	})
}

// Makes a local backup, then restores the install directory from the mirror
// subpath of the share. A failed backup aborts before anything is mounted.
func (o *Orchestrator) Pull(ctx context.Context, srv config.Server, steps *result.Steps) error {
	if !srv.Backup.Remote.Enabled {
		return fmt.Errorf("%w for server %s", ErrRemoteDisabled, srv.Name)
	}
	if _, err := o.Backup(ctx, srv, steps); err != nil {
		return err
	}
	return o.remote(ctx, srv, steps, plan{
		verb: "pulled",
		src:  func(mnt string) string { return filepath.Join(mnt, srv.Backup.Remote.Mirror) },
		dst:  func(string) string { return srv.Path },
	})
}

// Copies the local backup directory to the archive subpath of the share.
func (o *Orchestrator) Sync(ctx context.Context, srv config.Server, steps *result.Steps) error {
	local, err := localRoot(srv, steps)
	if err != nil {
		return err
	}
	return o.remote(ctx, srv, steps, plan{
		verb: "synced",
		src:  func(string) string { return local },
		dst:  func(mnt string) string { return filepath.Join(mnt, srv.Backup.Remote.Archive) },
	})
}

// Mounts, transfers and unmounts.
//
// The mount point is removed only after a successful unmount; a share that
// is still attached is never deleted through.
func (o *Orchestrator) remote(ctx context.Context, srv config.Server, steps *result.Steps, p plan) error {
	remote := srv.Backup.Remote
	if !remote.Enabled {
		return fmt.Errorf("%w for server %s", ErrRemoteDisabled, srv.Name)
	}
	location := remote.Location()

	mnt := dryRunMountPoint
	if !steps.DryRun() {
		dir, err := o.mkdirTemp("", "ownmine-"+srv.Name+"-")
		if err != nil {
			return fmt.Errorf("%w: mount point: %w", ErrTransfer, err)
		}
		mnt = dir
	}

	if err := o.run(ctx, steps, mountCmd(remote, mnt, o.MountTimeout)); err != nil {
		o.removeMountPoint(steps, mnt)
		return fmt.Errorf("%w: mount of %s failed: %w", ErrTransfer, location, err)
	}
	if !steps.DryRun() {
		steps.Add("mounted %s", location)
	}

	src, dst := p.src(mnt), p.dst(mnt)
	syncErr := o.run(ctx, steps, rsyncCmd(src, dst, chownSpec(p.chown, srv.User), o.SyncTimeout))

	umountErr := o.run(ctx, steps, umountCmd(mnt, o.MountTimeout))
	if umountErr == nil {
		o.removeMountPoint(steps, mnt)
	} else {
		slog.Error("share left mounted", "server", srv.Name, "share", location, "mountpoint", mnt, "error", umountErr)
	}

	switch {
	case syncErr != nil && umountErr != nil:
		return fmt.Errorf("%w: mounted %s but sync failed: %w; unmount also failed: %w", ErrTransfer, location, syncErr, umountErr)
	case syncErr != nil:
		return fmt.Errorf("%w: mounted %s but sync failed: %w", ErrTransfer, location, syncErr)
	case umountErr != nil:
		return fmt.Errorf("%w: %s %s but unmount of %s failed: %w", ErrTransfer, p.verb, location, mnt, umountErr)
	}

	if !steps.DryRun() {
		steps.Add("%s %s to %s", p.verb, src, dst)
		steps.Add("unmounted %s", location)
	}
	return nil
}

// Runs cmd, or records it when simulating.
func (o *Orchestrator) run(ctx context.Context, steps *result.Steps, cmd system.Cmd) error {
	if steps.DryRun() {
		steps.Simulated("would run: %s", cmd)
		return nil
	}
	slog.Debug("running", "command", cmd.String())
	_, err := o.runner.Run(ctx, cmd)
	return err
}

func (o *Orchestrator) removeMountPoint(steps *result.Steps, mnt string) {
	if steps.DryRun() {
		return
	}
	if err := os.Remove(mnt); err != nil {
		slog.Warn("failed to remove mount point", "path", mnt, "error", err)
	}
}

// Builds the CIFS mount command. The password travels in the PASSWD
// environment variable, never on the command line.
func mountCmd(r config.Remote, mnt string, timeout time.Duration) system.Cmd {
	opts := []string{"username=" + r.Username}
	if r.Domain != "" {
		opts = append(opts, "domain="+r.Domain)
	}
	if r.UID > 0 {
		opts = append(opts, "uid="+strconv.Itoa(r.UID))
	}
	if r.GID > 0 {
		opts = append(opts, "gid="+strconv.Itoa(r.GID))
	}
	opts = append(opts,
		fmt.Sprintf("file_mode=0%o", config.ParseMode(r.FileMode, config.DefaultFileMode)),
		fmt.Sprintf("dir_mode=0%o", config.ParseMode(r.DirMode, config.DefaultDirMode)),
	)

	cmd := system.Cmd{
		Name:    "mount",
		Args:    []string{"-t", "cifs", r.Location(), mnt, "-o", strings.Join(opts, ",")},
		Timeout: timeout,
	}
	if r.Password != "" {
		cmd.Env = []string{"PASSWD=" + r.Password}
		cmd.Redact = []string{r.Password}
	}
	return cmd
}

func umountCmd(mnt string, timeout time.Duration) system.Cmd {
	return system.Cmd{Name: "umount", Args: []string{mnt}, Timeout: timeout}
}

// Builds an rsync pass mirroring the contents of src into dst.
func rsyncCmd(src, dst, chown string, timeout time.Duration) system.Cmd {
	args := []string{"-a", "--delete"}
	if chown != "" {
		args = append(args, "--chown="+chown)
	}
	args = append(args, dirArg(src), dirArg(dst))
	return system.Cmd{Name: "rsync", Args: args, Timeout: timeout}
}

func chownSpec(enabled bool, user string) string {
	if !enabled || user == "" {
		return ""
	}
	return user + ":" + user
}

// Directory argument with exactly one trailing slash, so rsync copies the
// contents rather than the directory itself.
func dirArg(p string) string {
	return strings.TrimRight(p, "/") + "/"
}
