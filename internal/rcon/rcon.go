package rcon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorcon/rcon"

	"github.com/ownmine/ownmine/internal/config"
)

// Dial and read deadline used when a dialer sets none.
const DefaultTimeout = 5 * time.Second

// Open console session.
type Console interface {
	Execute(command string) (string, error)
	Close() error
}

// Opens authenticated console sessions.
type Dialer interface {
	Dial(ctx context.Context, addr, password string) (Console, error)
}

// Dials with github.com/gorcon/rcon.
type GorconDialer struct {
	Timeout time.Duration // Zero uses [DefaultTimeout].
}

// Connects and authenticates.
func (d GorconDialer) Dial(ctx context.Context, addr, password string) (Console, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	conn, err := rcon.Dial(addr, password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Runs console commands against configured servers.
type Client struct {
	dialer Dialer
}

// Creates a client using dialer.
func New(dialer Dialer) *Client {
	return &Client{dialer: dialer}
}

// Sends command to the console described by cfg and returns the reply,
// trimmed of surrounding whitespace.
func (c *Client) Send(ctx context.Context, cfg config.RCON, command string) (string, error) {
	if !cfg.Enabled {
		return "", ErrDisabled
	}

	addr := cfg.Addr()
	conn, err := c.dialer.Dial(ctx, addr, cfg.Password)
	if err != nil {
		return "", fmt.Errorf("%w: connect to %s: %w", ErrRemoteConsole, addr, err)
	}
	defer conn.Close()

	reply, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRemoteConsole, addr, err)
	}
	return strings.TrimSpace(reply), nil
}
