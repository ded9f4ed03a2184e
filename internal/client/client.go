package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/ownmine/ownmine/internal/paths"
	"github.com/ownmine/ownmine/internal/protocol"
	"github.com/ownmine/ownmine/internal/result"
)

// Upper bound on one exchange when the context has no deadline. Long
// transfers run inside the daemon, so this is generous.
const DefaultTimeout = 30 * time.Minute

// Sends one request line and returns the decoded reply.
//
// A missing socket or a refused connection is reported as [ErrNotRunning].
func Send(ctx context.Context, socketPath, line string) (result.Result, error) {
	if socketPath == "" {
		socketPath = paths.Socket()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		if notRunning(err) {
			return result.Result{}, ErrNotRunning
		}
		return result.Result{}, fmt.Errorf("%w: %w", ErrClient, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	// Unblock reads and writes when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := protocol.WriteRequest(conn, line); err != nil {
		return result.Result{}, err
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	res, err := protocol.ReadResponse(conn)
	if err != nil {
		if ctx.Err() != nil {
			return result.Result{}, fmt.Errorf("%w: %w", ErrClient, ctx.Err())
		}
		return result.Result{}, err
	}
	return res, nil
}

func notRunning(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
