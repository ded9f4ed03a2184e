// Provides the leveled and simple log sinks used by the daemon and by each
// configured server.
//
// Both sinks are [log/slog] handlers. The leveled sink prefixes every line
// with a timestamp and a level tag and may also append to a file:
//
//	[2006-01-02 15:04:05] [Warning] rcon dial failed server=survival
//
// The simple sink prints the message alone and writes only to the screen.
//
// Gating follows the execution mode. A record below the minimum level is
// dropped, and a disabled logger drops everything, unless debug mode is set,
// in which case every record goes through.
package log
