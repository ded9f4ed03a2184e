package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ownmine/ownmine/internal/execmode"
	"github.com/ownmine/ownmine/internal/secret"
)

// Permission mode of the configuration file. It holds sealed secrets and
// the share layout, so only the owner may read it.
const fileMode os.FileMode = 0600

// On-disk layout. Servers are decoded from the raw node so that the
// declaration order survives.
type fileConfig struct {
	Mode    int       `yaml:"mode"`
	Log     Log       `yaml:"log"`
	Servers yaml.Node `yaml:"servers"`
}

// Loads and saves one configuration file.
//
// A Store is safe for concurrent use; loads and saves are serialized.
type Store struct {
	path     string
	secrets  *secret.Store
	mu       sync.Mutex
	snapshot []byte // Verbatim bytes of the last successful load or save.

	write       func(path string, data []byte) error
	currentUser func() (string, error)
}

// Creates a store for the file at path.
func NewStore(path string, secrets *secret.Store) *Store {
	return &Store{
		path:        path,
		secrets:     secrets,
		write:       writeFileAtomic,
		currentUser: currentUsername,
	}
}

// Path of the configuration file.
func (s *Store) Path() string {
	return s.path
}

// Reads, validates and opens the configuration file.
//
// On success the raw bytes are kept as the restore snapshot.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	cfg, err := s.parse(data)
	if err != nil {
		return nil, err
	}

	s.snapshot = slices.Clone(data)
	return cfg, nil
}

// Seals every plaintext secret and writes the configuration.
//
// The file is replaced atomically. If writing fails, the snapshot of the
// last successful load is written back and the returned error describes
// both outcomes.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.encode(cfg)
	if err != nil {
		return err
	}

	if err := s.write(s.path, data); err != nil {
		if s.snapshot == nil {
			return fmt.Errorf("%w: save failed: %w", ErrConfiguration, err)
		}
		if rerr := s.write(s.path, s.snapshot); rerr != nil {
			return fmt.Errorf("%w: save failed: %w; restore also failed: %w", ErrConfiguration, err, rerr)
		}
		return fmt.Errorf("%w: save failed, previous file restored: %w", ErrConfiguration, err)
	}

	s.snapshot = data
	return nil
}

// Whether the file on disk differs from the bytes of the last successful
// load or save. A missing file counts as changed.
func (s *Store) Changed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return !bytes.Equal(data, s.snapshot), nil
}

// Decodes raw file content into a configuration.
func (s *Store) parse(data []byte) (*Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, s.path, err)
	}

	servers, err := decodeServers(&raw.Servers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, s.path, err)
	}

	plaintext := false
	for i := range servers {
		p, err := s.open(&servers[i])
		if err != nil {
			return nil, fmt.Errorf("%w: server %q: %w", ErrConfiguration, servers[i].Name, err)
		}
		plaintext = plaintext || p

		if err := s.applyDefaults(&servers[i]); err != nil {
			return nil, fmt.Errorf("%w: server %q: %w", ErrConfiguration, servers[i].Name, err)
		}
	}

	cfg, err := New(s.path, execmode.Mode(raw.Mode), raw.Log, servers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	cfg.plaintext = plaintext
	return cfg, nil
}

// Decodes the servers mapping node, preserving key order.
func decodeServers(node *yaml.Node) ([]Server, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, wrapf(ErrInvalid, "servers must be a mapping, line %d", node.Line)
	}

	seen := make(map[string]bool, len(node.Content)/2)
	servers := make([]Server, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := key.Value

		if name == "" {
			return nil, wrapf(ErrInvalid, "empty server name, line %d", key.Line)
		}
		if seen[name] {
			return nil, wrapf(ErrDuplicateName, "%q, line %d", name, key.Line)
		}
		seen[name] = true

		var srv Server
		if err := value.Decode(&srv); err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
		srv.Name = name

		if srv.Path == "" {
			return nil, wrapf(ErrInvalid, "server %q: path is required", name)
		}

		servers = append(servers, srv)
	}

	return servers, nil
}

// Opens sealed secrets in place. Reports whether any secret was plaintext.
func (s *Store) open(srv *Server) (bool, error) {
	plaintext := false
	for _, field := range secretFields(srv) {
		if *field == "" {
			continue
		}
		if !s.secrets.IsEncrypted(*field) {
			plaintext = true
			continue
		}
		v, err := s.secrets.Decrypt(*field)
		if err != nil {
			return false, err
		}
		*field = v
	}
	return plaintext, nil
}

// Fills fields that have a runtime default.
func (s *Store) applyDefaults(srv *Server) error {
	if srv.RCON.Address == "" {
		srv.RCON.Address = DefaultRCONAddress
	}
	if srv.Backup.Remote.FileMode == "" {
		srv.Backup.Remote.FileMode = DefaultFileMode
	}
	if srv.Backup.Remote.DirMode == "" {
		srv.Backup.Remote.DirMode = DefaultDirMode
	}
	if srv.User == "" {
		name, err := s.currentUser()
		if err != nil {
			return err
		}
		srv.User = name
	}
	return nil
}

// Encodes a configuration with every secret sealed.
//
// When cfg describes the same servers as the last loaded file, that file is
// re-encoded with only its plaintext secret scalars replaced, so comments
// survive and runtime defaults are never written out.
func (s *Store) encode(cfg *Config) ([]byte, error) {
	doc, servers, ok := s.document(cfg)
	if !ok {
		return s.render(cfg)
	}

	for i := 0; i+1 < len(servers.Content); i += 2 {
		name := servers.Content[i].Value
		for _, path := range secretPaths {
			scalar := lookup(servers.Content[i+1], path...)
			if scalar == nil || scalar.Kind != yaml.ScalarNode {
				continue
			}
			if scalar.Value == "" || s.secrets.IsEncrypted(scalar.Value) {
				continue
			}
			sealed, err := s.secrets.Encrypt(scalar.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: server %q: %w", ErrConfiguration, name, err)
			}
			scalar.Value = sealed
			scalar.Tag = "!!str"
		}
	}

	return marshal(&doc)
}

// Parses the snapshot and returns its document and servers mapping, provided
// it declares exactly the servers of cfg in the same order.
func (s *Store) document(cfg *Config) (yaml.Node, *yaml.Node, bool) {
	var doc yaml.Node
	if s.snapshot == nil || yaml.Unmarshal(s.snapshot, &doc) != nil {
		return doc, nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return doc, nil, false
	}

	servers := lookup(doc.Content[0], "servers")
	if servers == nil || servers.Kind != yaml.MappingNode {
		return doc, nil, false
	}

	names := make([]string, 0, len(servers.Content)/2)
	for i := 0; i+1 < len(servers.Content); i += 2 {
		names = append(names, servers.Content[i].Value)
	}
	if !slices.Equal(names, cfg.Names()) {
		return doc, nil, false
	}
	return doc, servers, true
}

// Encodes cfg from scratch, sealing every secret.
func (s *Store) render(cfg *Config) ([]byte, error) {
	servers := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, srv := range cfg.Servers {
		for _, field := range secretFields(&srv) {
			if *field == "" || s.secrets.IsEncrypted(*field) {
				continue
			}
			sealed, err := s.secrets.Encrypt(*field)
			if err != nil {
				return nil, fmt.Errorf("%w: server %q: %w", ErrConfiguration, srv.Name, err)
			}
			*field = sealed
		}

		var value yaml.Node
		if err := value.Encode(srv); err != nil {
			return nil, fmt.Errorf("%w: server %q: %w", ErrConfiguration, srv.Name, err)
		}

		key := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: srv.Name}
		servers.Content = append(servers.Content, &key, &value)
	}

	raw := fileConfig{
		Mode:    int(cfg.Mode),
		Log:     cfg.Log,
		Servers: servers,
	}

	return marshal(&raw)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return buf.Bytes(), nil
}

// Pointers to every secret field of a server definition.
func secretFields(srv *Server) []*string {
	return []*string{&srv.RCON.Password, &srv.Backup.Remote.Password}
}

// Key paths of the secret fields inside a server mapping, in the order of
// [secretFields].
var secretPaths = [][]string{
	{"rcon", "password"},
	{"backup", "smb", "password"},
}

// Follows keys through nested mappings. Returns nil when a key is missing.
func lookup(node *yaml.Node, keys ...string) *yaml.Node {
	for _, key := range keys {
		if node.Kind == yaml.AliasNode {
			node = node.Alias
		}
		if node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// Writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, fileMode); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Name of the user running the daemon.
func currentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
