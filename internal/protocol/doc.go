// Encodes requests and responses on the daemon's control socket.
//
// One connection carries one exchange. The client writes a single request
// line terminated by a newline (or closes its write side), the daemon
// writes one encoded result and closes the connection. Results are text
// with a status prefix:
//
//	[OK] survival;creative
//	[ERROR] unknown command 'foo'
//	[ERROR:2] server 'lobby' is not configured
//
// The numeric form carries a failure code other than the default -1. A
// response with no recognized prefix decodes as a success.
package protocol
