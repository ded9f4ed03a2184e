package command

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/result"
	"github.com/ownmine/ownmine/internal/system"
)

const dryRun = execmode.DryRun

func TestDryRunHasNoSideEffects(t *testing.T) {
	requests := []string{
		"start survival",
		"stop survival",
		"stop creative",
		"exit survival",
		"status survival",
		"exec survival say hello",
		"exec creative say hello",
		"push survival",
		"pull survival",
		"backup survival",
		"sync survival",
		"sync",
		"list",
		"reload",
	}

	for _, raw := range requests {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(t, dryRun)
			h.processes.Set("survival", 77)

			ok, msg := h.handle(raw)
			require.True(t, ok, msg)
			assert.Contains(t, msg, result.DryRunTag)
			assert.True(t, strings.HasSuffix(msg, result.DryRunMarker), msg)

			assert.Zero(t, h.spawner.calls(), "no process spawned")
			assert.Zero(t, h.dialer.dialCount(), "no console connection")
			assert.Empty(t, h.runner.names(), "no mount, sync or unmount")
			assert.NoDirExists(t, h.cfg.Servers[0].Backup.Local, "no backup written")

			pid, tracked := h.processes.Get("survival")
			assert.True(t, tracked)
			assert.Equal(t, 77, pid)
		})
	}
}

func TestDryRunWithoutLocalBackup(t *testing.T) {
	servers := defaultServers(t, t.TempDir())
	for i := range servers {
		servers[i].Backup.Local = ""
	}

	for _, raw := range []string{"backup survival", "sync survival", "pull survival", "sync"} {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(t, dryRun, servers...)

			ok, msg := h.handle(raw)
			require.True(t, ok, msg)
			assert.Contains(t, msg, "local backup path is not configured for server survival; a real run would fail")
			assert.True(t, strings.HasSuffix(msg, result.DryRunMarker), msg)
			assert.Empty(t, h.runner.names())
		})
	}

	t.Run("real run fails", func(t *testing.T) {
		h := newHarness(t, 0, servers...)
		ok, msg := h.handle("backup survival")
		assert.False(t, ok)
		assert.Equal(t, "local backup path is not configured for server survival", msg)
	})
}

func TestDryRunDescribesCommands(t *testing.T) {
	h := newHarness(t, dryRun)

	_, msg := h.handle("start survival")
	assert.Contains(t, msg, "(Dry-run) would run in ")
	assert.Contains(t, msg, "java -Xms1024M -Xmx1024M -jar ")

	_, msg = h.handle("push survival")
	assert.Contains(t, msg, "(Dry-run) would run: PASSWD='***' mount -t cifs //nas/survival /tmp/dryrun")
	assert.NotContains(t, msg, "sharepw")

	_, msg = h.handle("exec survival say hello")
	assert.Contains(t, msg, "(Dry-run) would send 'say hello' over RCON to 127.0.0.1:25575")
}

func TestStopWithConsoleDisabled(t *testing.T) {
	live := newHarness(t, 0)
	ok, msg := live.handle("stop creative")
	assert.False(t, ok)
	assert.Equal(t, "RCON is not enabled for server creative", msg)

	sim := newHarness(t, dryRun)
	ok, msg = sim.handle("stop creative")
	assert.True(t, ok)
	assert.Contains(t, msg, "RCON is not enabled for server creative; a real run would fail")
}

func TestExecWithConsoleDisabled(t *testing.T) {
	servers := defaultServers(t, t.TempDir())
	servers[0].RCON.Enabled = false
	h := newHarness(t, 0, servers...)

	ok, msg := h.handle("exec survival say hello")
	assert.False(t, ok)
	assert.Equal(t, "RCON is not enabled for server survival", msg)
	assert.Zero(t, h.dialer.dialCount())
}

func TestExec(t *testing.T) {
	h := newHarness(t, 0)
	h.dialer.reply = "There are 0 of a max of 20 players online"

	ok, msg := h.handle("exec survival list")
	assert.True(t, ok)
	assert.Equal(t, "There are 0 of a max of 20 players online", msg)

	ok, msg = h.handle("exec survival say hello   world")
	assert.True(t, ok)
	assert.Equal(t, "There are 0 of a max of 20 players online", msg)
	assert.Equal(t, []string{"list", "say hello world"}, h.dialer.commands)
}

func TestConsoleReplyEchoedOnScreen(t *testing.T) {
	servers := defaultServers(t, t.TempDir())
	servers[0].Log = config.Log{Enabled: true, Level: "message"}
	h := newHarness(t, 0, servers...)
	h.dialer.reply = "Saved the game"

	ok, _ := h.handle("exec survival save-all")
	require.True(t, ok)

	assert.Contains(t, h.screen.String(), "\nSaved the game server=survival\n")
}

func TestExecEmptyReplyAndNoArgs(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("exec survival say hi")
	assert.True(t, ok)
	assert.Equal(t, "(no reply)", msg)

	ok, msg = h.handle("exec survival")
	assert.False(t, ok)
	assert.Equal(t, "nothing to execute", msg)
}

func TestExecConsoleError(t *testing.T) {
	h := newHarness(t, 0)
	h.dialer.dialErr = errors.New("connection refused")

	ok, msg := h.handle("exec survival list")
	assert.False(t, ok)
	assert.Contains(t, msg, "failed to execute 'list' on server survival")
	assert.Contains(t, msg, "connection refused")
}

func TestStart(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("start survival")
	require.True(t, ok, msg)
	assert.Equal(t, "started server survival (pid 4242)", msg)

	pid, tracked := h.processes.Get("survival")
	assert.True(t, tracked)
	assert.Equal(t, 4242, pid)

	spec := h.spawner.specs[0]
	assert.Equal(t, "java", spec.Program)
	assert.Equal(t, h.cfg.Servers[0].Path, spec.Dir)
	assert.Equal(t, filepath.Join(h.cfg.Servers[0].Path, "server.jar"), spec.Artifact)
}

func TestStartAfterServerWasRemoved(t *testing.T) {
	h := newHarness(t, 0)
	// A reload dropped survival while this request still held the old snapshot.
	h.processes.Prune([]string{"creative"})

	ok, msg := h.handle("start survival")
	require.True(t, ok, msg)
	assert.Equal(t, "started server survival (pid 4242), but it was removed from the configuration and is not tracked", msg)

	_, tracked := h.processes.Get("survival")
	assert.False(t, tracked)
}

func TestStartAlreadyRunning(t *testing.T) {
	h := newHarness(t, 0)
	h.processes.Set("survival", 77)
	h.prober.alive[77] = 10

	ok, msg := h.handle("start survival")
	assert.False(t, ok)
	assert.Equal(t, "server survival is already running (pid 77)", msg)
	assert.Zero(t, h.spawner.calls())
}

func TestStartMissingExecutable(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("start creative")
	assert.False(t, ok)
	assert.Contains(t, msg, "executable not found for server creative")
	assert.Zero(t, h.spawner.calls())
}

func TestStartSpawnFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.spawner.err = errBoom

	ok, msg := h.handle("start survival")
	assert.False(t, ok)
	assert.Equal(t, "failed to start server survival: boom", msg)
	_, tracked := h.processes.Get("survival")
	assert.False(t, tracked)
}

func TestStop(t *testing.T) {
	h := newHarness(t, 0)
	h.dialer.reply = "Stopping the server"
	h.processes.Set("survival", 77)
	h.prober.alive[77] = 2

	ok, msg := h.handle("stop survival")
	require.True(t, ok, msg)
	assert.Equal(t, "Stopping the server\nstopped server survival (pid 77)", msg)
	assert.Equal(t, []string{"stop"}, h.dialer.commands)

	_, tracked := h.processes.Get("survival")
	assert.False(t, tracked)
}

func TestStopStillRunning(t *testing.T) {
	h := newHarness(t, 0)
	h.processes.Set("survival", 77)
	h.prober.alive[77] = 1000

	ok, msg := h.handle("stop survival")
	assert.False(t, ok)
	assert.Equal(t, "server survival is still running (pid 77)", msg)

	_, tracked := h.processes.Get("survival")
	assert.True(t, tracked)
}

func TestStopUntracked(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("stop survival")
	assert.True(t, ok)
	assert.Contains(t, msg, "exit could not be verified")
}

func TestExitStopFailureAborts(t *testing.T) {
	h := newHarness(t, 0)
	h.dialer.dialErr = errors.New("connection refused")

	ok, msg := h.handle("exit survival")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "exit failed at stop: "), msg)
	assert.Empty(t, h.runner.names(), "push must not run")
}

func TestExitPushFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.runner.fail = failWhen("mount", "//nas/survival", errors.New("bad credentials"))

	ok, msg := h.handle("exit survival")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "exit failed at push: "), msg)
	assert.Contains(t, msg, "bad credentials")
	assert.Equal(t, []string{"mount"}, h.runner.names())
}

func TestExit(t *testing.T) {
	h := newHarness(t, 0)
	h.processes.Set("survival", 77)

	ok, msg := h.handle("exit survival")
	require.True(t, ok, msg)
	assert.Contains(t, msg, "stopped server survival (pid 77)")
	assert.Contains(t, msg, "pushed ")
	assert.Equal(t, []string{"mount", "rsync", "umount"}, h.runner.names())
}

func TestExitDryRunConcatenatesSteps(t *testing.T) {
	h := newHarness(t, dryRun)

	ok, msg := h.handle("exit survival")
	require.True(t, ok)
	stop := strings.Index(msg, "would send 'stop'")
	mount := strings.Index(msg, "mount -t cifs")
	require.GreaterOrEqual(t, stop, 0, msg)
	assert.Greater(t, mount, stop, msg)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("status survival")
	assert.True(t, ok)
	assert.Equal(t, "server survival is not running", msg)

	h.processes.Set("survival", 77)
	h.prober.alive[77] = 10
	ok, msg = h.handle("status survival")
	assert.True(t, ok)
	assert.Equal(t, "server survival is running (pid 77, sleeping)", msg)

	h.prober.alive[77] = 0
	ok, msg = h.handle("status survival")
	assert.True(t, ok)
	assert.Equal(t, "server survival is not running (pid 77 exited)", msg)
	_, tracked := h.processes.Get("survival")
	assert.False(t, tracked)
}

var backupPath = regexp.MustCompile(`/backups/survival_\d{14}`)

func TestBackupScenario(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("backup survival")
	require.True(t, ok, msg)

	dest := backupPath.FindString(msg)
	require.NotEmpty(t, dest, msg)
	full := filepath.Join(h.root, dest)

	data, err := os.ReadFile(filepath.Join(full, "world", "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "level", string(data))
	assert.FileExists(t, filepath.Join(full, "server.jar"))
}

func TestPushRemoteDisabled(t *testing.T) {
	servers := defaultServers(t, t.TempDir())
	servers[0].Backup.Remote.Enabled = false
	h := newHarness(t, 0, servers...)

	ok, msg := h.handle("push survival")
	assert.False(t, ok)
	assert.Equal(t, "remote backup is not enabled for server survival", msg)
	assert.Empty(t, h.runner.names())
}

func TestPullBacksUpFirst(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("pull survival")
	require.True(t, ok, msg)
	assert.Regexp(t, `^backed up `, msg)
	assert.Equal(t, []string{"mount", "rsync", "umount"}, h.runner.names())
}

func TestTransferFailureComposition(t *testing.T) {
	h := newHarness(t, 0)
	h.runner.fail = func(c system.Cmd) error {
		switch c.Name {
		case "rsync":
			return errors.New("no space left")
		case "umount":
			return errors.New("target is busy")
		}
		return nil
	}

	ok, msg := h.handle("sync survival")
	assert.False(t, ok)
	assert.Equal(t, "transfer failed: mounted //nas/survival but sync failed: no space left; unmount also failed: target is busy", msg)
}

func TestSyncAllReportsFailures(t *testing.T) {
	h := newHarness(t, 0)
	h.runner.fail = failWhen("mount", "//nas/creative", errors.New("host unreachable"))

	ok, msg := h.handle("sync")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "sync failed for: creative\n"), msg)
	assert.Contains(t, msg, "host unreachable")
}

func TestSyncAllSkipsDisabledShares(t *testing.T) {
	servers := defaultServers(t, t.TempDir())
	servers[1].Backup.Remote.Enabled = false
	h := newHarness(t, 0, servers...)

	ok, msg := h.handle("sync")
	require.True(t, ok, msg)
	assert.Contains(t, msg, "creative: skipped, remote backup is not enabled")
	assert.True(t, strings.HasSuffix(msg, "synced 1 servers"), msg)
}

func TestSyncAllEmpty(t *testing.T) {
	h := newHarness(t, 0, defaultServers(t, t.TempDir())[:0]...)

	ok, msg := h.handle("sync")
	assert.True(t, ok)
	assert.Equal(t, "no servers configured", msg)
}

func TestReload(t *testing.T) {
	h := newHarness(t, 0)

	ok, msg := h.handle("reload")
	assert.True(t, ok)
	assert.Equal(t, "configuration reloaded", msg)
	assert.Equal(t, 1, h.reloader.calls)

	h.reloader.err = errors.New("servers.yaml: line 3: mapping values are not allowed")
	ok, msg = h.handle("reload")
	assert.False(t, ok)
	assert.Contains(t, msg, "reload failed: servers.yaml: line 3")
}
