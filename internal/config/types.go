package config

import (
	"slices"
	"strconv"

	"github.com/ownmine/ownmine/internal/execmode"
)

const (

	// Remote-console address used when a server does not specify one.
	DefaultRCONAddress = "127.0.0.1"

	// Remote-console port used when a server does not specify one.
	DefaultRCONPort = 25575

	// Log level used when none is configured.
	DefaultLogLevel = "warning"

	// Permission bits applied to files on a mounted share by default.
	DefaultFileMode = "0644"

	// Permission bits applied to directories on a mounted share by default.
	DefaultDirMode = "0755"
)

// Log settings for the daemon or for one server.
type Log struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`  // Directory of the log file.
	File    string `yaml:"file,omitempty"`  // File name. Empty logs to screen only.
	Level   string `yaml:"level,omitempty"` // Minimum level name (debug, message, info, warning, error, fatal).
}

// Remote-console settings.
type RCON struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"ip,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Network share used for mirrors and archives.
type Remote struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host,omitempty"`
	Share    string `yaml:"share,omitempty"`
	Mirror   string `yaml:"mirror,omitempty"`  // Subpath receiving push and serving pull.
	Archive  string `yaml:"archive,omitempty"` // Subpath receiving synced local backups.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Domain   string `yaml:"domain,omitempty"`
	UID      int    `yaml:"uid,omitempty"`
	GID      int    `yaml:"gid,omitempty"`
	FileMode string `yaml:"file_mode,omitempty"` // Octal, e.g. "0644".
	DirMode  string `yaml:"dir_mode,omitempty"`  // Octal, e.g. "0755".
}

// Backup settings.
type Backup struct {
	Local  string `yaml:"local,omitempty"` // Directory receiving point-in-time copies.
	Remote Remote `yaml:"smb"`
}

// Definition of one game-server instance.
//
// Values are copied out of a [Config]; handlers never share a pointer into
// the loaded configuration.
type Server struct {
	Name       string `yaml:"-"`
	Path       string `yaml:"path"`
	Executable string `yaml:"jar"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user,omitempty"`
	RCON       RCON   `yaml:"rcon"`
	Log        Log    `yaml:"log"`
	Backup     Backup `yaml:"backup"`
}

// Loaded configuration.
//
// A Config is treated as immutable once returned by [Store.Load]; reloading
// produces a new value.
type Config struct {
	Path    string        // File the configuration was loaded from.
	Mode    execmode.Mode // Execution mode persisted in the file.
	Log     Log           // Daemon-wide log settings.
	Servers []Server      // Server definitions in declaration order.

	index     map[string]int
	plaintext bool // Whether any secret was stored unsealed on disk.
}

// Builds a configuration from server definitions. Used by the loader and by
// tests; names must be unique.
func New(path string, mode execmode.Mode, log Log, servers []Server) (*Config, error) {
	c := &Config{
		Path:    path,
		Mode:    mode,
		Log:     log,
		Servers: slices.Clone(servers),
		index:   make(map[string]int, len(servers)),
	}
	for i, s := range c.Servers {
		if _, dup := c.index[s.Name]; dup {
			return nil, wrapf(ErrDuplicateName, "%q", s.Name)
		}
		c.index[s.Name] = i
	}
	return c, nil
}

// Returns a copy of the named server definition.
func (c *Config) Server(name string) (Server, bool) {
	i, ok := c.index[name]
	if !ok {
		return Server{}, false
	}
	return c.Servers[i], true
}

// Whether a server with the given name is configured.
func (c *Config) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Server names in declaration order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Servers))
	for i, s := range c.Servers {
		names[i] = s.Name
	}
	return names
}

// Whether the file held at least one unsealed secret when loaded.
func (c *Config) HasPlaintextSecrets() bool {
	return c.plaintext
}

// Remote-console address in host:port form.
func (r RCON) Addr() string {
	addr := r.Address
	if addr == "" {
		addr = DefaultRCONAddress
	}
	port := r.Port
	if port == 0 {
		port = DefaultRCONPort
	}
	return joinHostPort(addr, port)
}

// UNC-style share location, e.g. //nas/games.
func (r Remote) Location() string {
	return "//" + r.Host + "/" + r.Share
}

// Parses an octal permission string, falling back to def when s is empty
// or invalid.
func ParseMode(s, def string) uint32 {
	if s == "" {
		s = def
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		v, _ = strconv.ParseUint(def, 8, 32)
	}
	return uint32(v)
}
