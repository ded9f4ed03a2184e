// Package client sends one command to the ownmine daemon.
//
// A request is a single line written to the daemon's Unix socket. The
// daemon replies with one encoded result and closes the connection.
//
//	res, err := client.Send(ctx, paths.Socket(), "survival status")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Message)
package client
