package secret

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (

	// Keyring service under which the identity is stored.
	KeyringService = "ownmine"

	// Keyring account name for the configuration identity.
	KeyringUser = "config-identity"

	// Permission mode for key files.
	keyFileMode os.FileMode = 0600

	// Permission mode for the directory holding the key file.
	keyDirMode os.FileMode = 0700
)

// Loads and persists the identity used to seal secrets.
type KeySource interface {
	Load() (string, error) // Returns the identity, or an error wrapping ErrKeyNotFound.
	Store(identity string) error
	String() string
}

// Key material stored in a file, in the format written by age-keygen.
type FileKey struct {
	Path string
}

// Reads the first identity line of the key file. Comment and blank lines
// are skipped.
func (k FileKey) Load() (string, error) {
	f, err := os.Open(k.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, k.Path)
		}
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: %s is empty", ErrKeyNotFound, k.Path)
}

// Writes the identity to the key file, owner read-write only. An existing
// file is never overwritten.
func (k FileKey) Store(identity string) error {
	if err := os.MkdirAll(filepath.Dir(k.Path), keyDirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(k.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyFileMode)
	if err != nil {
		return err
	}

	if err := writeKey(f, identity); err != nil {
		f.Close()
		os.Remove(k.Path)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(k.Path)
		return err
	}
	return nil
}

func writeKey(w io.Writer, identity string) error {
	if _, err := fmt.Fprintf(w, "# created: %s\n", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, identity)
	return err
}

func (k FileKey) String() string {
	return "file " + k.Path
}

// Key material stored in the operating system keyring.
type KeyringKey struct {
	Service string // Empty uses [KeyringService].
	User    string // Empty uses [KeyringUser].
}

func (k KeyringKey) names() (string, string) {
	service, user := k.Service, k.User
	if service == "" {
		service = KeyringService
	}
	if user == "" {
		user = KeyringUser
	}
	return service, user
}

// Reads the identity from the keyring.
func (k KeyringKey) Load() (string, error) {
	service, user := k.names()
	v, err := keyring.Get(service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: keyring %s/%s", ErrKeyNotFound, service, user)
		}
		return "", fmt.Errorf("keyring: %w", err)
	}
	return strings.TrimSpace(v), nil
}

// Writes the identity to the keyring.
func (k KeyringKey) Store(identity string) error {
	service, user := k.names()
	if err := keyring.Set(service, user, identity); err != nil {
		return fmt.Errorf("keyring: %w", err)
	}
	return nil
}

func (k KeyringKey) String() string {
	service, user := k.names()
	return "keyring " + service + "/" + user
}

// Returns the key source for a source name as accepted on the command line.
//
// "file" (or an empty name) reads path; "keyring" uses the default keyring
// entry.
func ParseSource(name, path string) (KeySource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "file":
		return FileKey{Path: path}, nil
	case "keyring":
		return KeyringKey{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown key source %q", ErrSecret, name)
	}
}
