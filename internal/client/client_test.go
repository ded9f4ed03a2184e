package client

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownmine/ownmine/internal/result"
)

// Serves one connection: records the request line and writes reply.
func serveOnce(t *testing.T, reply string) (string, <-chan string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
		conn.Write([]byte(reply))
	}()
	return path, got
}

func TestSend(t *testing.T) {
	path, got := serveOnce(t, "[OK] server survival is running (pid 7, sleeping)\n")

	res, err := Send(context.Background(), path, "survival status")
	require.NoError(t, err)

	assert.Equal(t, "survival status\n", <-got)
	assert.Equal(t, result.Success("server survival is running (pid 7, sleeping)"), res)
}

func TestSendFailureCode(t *testing.T) {
	path, _ := serveOnce(t, "[ERROR:3] nope\n")

	res, err := Send(context.Background(), path, "list")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 3, res.Code)
	assert.Equal(t, "nope", res.Message)
}

func TestSendMultilineReply(t *testing.T) {
	path, _ := serveOnce(t, "[OK] a\nb\nc\n")

	res, err := Send(context.Background(), path, "survival exit")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", res.Message)
}

func TestSendDaemonAbsent(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), "list")
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Equal(t, "the ownmine daemon does not seem to be running", err.Error())
}

func TestSendStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	_, err = Send(context.Background(), path, "list")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestSendRejectsMultiline(t *testing.T) {
	path, _ := serveOnce(t, "[OK]\n")

	_, err := Send(context.Background(), path, "a\nb")
	assert.Error(t, err)
}

func TestSendHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slow.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = Send(ctx, path, "list")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
