package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/ownmine/ownmine/internal/protocol"
)

const (

	// Name used for directory and file naming.
	appName = "ownmine"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Directory holding the configuration file and the file-backed key.
//
//	Linux:   $XDG_CONFIG_HOME/ownmine or ~/.config/ownmine
//	macOS:   ~/Library/Application Support/ownmine
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// Default path to the server configuration file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "servers.yaml")
}

// Default path to the age identity used to seal secrets.
func KeyFile() string {
	return filepath.Join(ConfigDir(), appName+".key")
}

// Path to the directory for runtime files.
//
//	Linux:   $XDG_RUNTIME_DIR/ownmine or /run/user/<uid>/ownmine
//	macOS:   ~/Library/Caches/ownmine/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appName)
	}
	return filepath.Join(xdg.CacheHome, appName, "run")
}

// Default path to the Unix domain socket. The location is fixed so that
// clients run by any tool find the daemon without configuration.
func Socket() string {
	return protocol.DefaultSocketPath
}

// Default path to the PID file.
func PIDFile() string {
	return filepath.Join(Runtime(), appName+".pid")
}
