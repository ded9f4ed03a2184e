// Parses flags and configures logging for the ownmine binaries.
//
// The daemon, ownmined, accepts the following flags:
//
//	-c, --config       Configuration file.
//	-s, --socket       Unix socket path.
//	-k, --key          File holding the age identity.
//	    --key-source   Where the identity lives: file or keyring.
//	-n, --dry-run      Simulate every side effect.
//	-d, --debug        Enable debug output.
//	-q, --quiet        Suppress informational output.
//	-w, --watch        Reload when the configuration file changes.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the daemon
// starts.
//
// The client, ownmine, forwards its arguments to the daemon as one request
// line and prints the decoded reply.
package cli
