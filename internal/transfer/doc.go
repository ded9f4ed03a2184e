// Moves server data between the install directory, the local backup
// directory and a CIFS network share.
//
// Remote transfers follow one pattern: mount the share at a private
// temporary directory, run rsync, and unmount. The unmount runs whenever
// the mount succeeded, including after a failed sync, and errors compose
// so the caller learns the residual state:
//
//	mounted //nas/games but sync failed: ...; unmount also failed: ...
//
// A local backup is a point-in-time recursive copy of the install
// directory into <local>/<name>_<YYYYMMDDHHMMSS>.
//
// In simulate-only mode every step is recorded as the command line it would
// run and nothing touches the filesystem.
package transfer
