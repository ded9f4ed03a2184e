package main

import (
	"os"

	"github.com/ownmine/ownmine/internal/cli"
)

// The entry point for the ownmine client.
//
// Forwards the arguments to the daemon and exits with 0 when the command
// succeeded, 1 when it failed, and 2 when the daemon could not be reached.
func main() {
	os.Exit(cli.ExecuteClient())
}
