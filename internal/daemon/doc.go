// Package daemon implements the ownmine daemon.
//
// The daemon listens on a Unix domain socket for one-line commands from the
// ownmine client. Each connection carries a single exchange: the client
// sends a request line, the daemon dispatches it through the command
// package, and writes one encoded result before closing the connection.
// Every accepted connection is served on its own goroutine.
//
// The configuration and the loggers built from it are held behind an
// atomic pointer. A reload builds a complete new state and swaps it in, so
// a request in flight keeps the snapshot it started with.
//
// Example usage:
//
//	d, err := daemon.New(daemon.Config{
//	    Store: config.NewStore(path, secrets),
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := d.Start(); err != nil {
//	    return err
//	}
//	defer d.Stop()
//
//	d.Wait()
package daemon
