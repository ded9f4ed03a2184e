package secret

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"filippo.io/age"
)

const (

	// Base64 form of "age-encryption.org/v1", the first bytes of every age
	// file. The header is 21 bytes long, so its encoding is stable.
	ciphertextPrefix = "YWdlLWVuY3J5cHRpb24ub3JnL3Yx"

	// No sealed value is shorter than this. An X25519 stanza alone is
	// longer once encoded.
	minCiphertextLength = 100
)

// Seals and opens secret values with a lazily loaded age identity.
//
// A Store is safe for concurrent use.
type Store struct {
	source   KeySource
	create   bool
	mu       sync.Mutex
	identity *age.X25519Identity
}

// Creates a store backed by the given key source.
//
// When create is true and the source holds no key, a new identity is
// generated and persisted on first use.
func New(source KeySource, create bool) *Store {
	return &Store{source: source, create: create}
}

// Whether v looks like a value produced by [Store.Encrypt].
//
// The check is structural: the age header prefix, a minimum length and a
// valid base64 body. It does not need the key.
func (s *Store) IsEncrypted(v string) bool {
	return IsEncrypted(v)
}

// Structural ciphertext check, usable without a store.
func IsEncrypted(v string) bool {
	if len(v) < minCiphertextLength || !strings.HasPrefix(v, ciphertextPrefix) {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(v)
	return err == nil
}

// Seals plaintext and returns base64 ciphertext.
func (s *Store) Encrypt(plaintext string) (string, error) {
	id, err := s.key()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, id.Recipient())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Opens a value produced by [Store.Encrypt].
func (s *Store) Decrypt(token string) (string, error) {
	if !IsEncrypted(token) {
		return "", fmt.Errorf("%w: %w", ErrSecret, ErrNotSealed)
	}

	id, err := s.key()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}

	r, err := age.Decrypt(bytes.NewReader(raw), id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecret, err)
	}
	return string(plain), nil
}

// Returns the identity, loading or generating it on first use.
func (s *Store) key() (*age.X25519Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		return s.identity, nil
	}

	raw, err := s.source.Load()
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) || !s.create {
			return nil, fmt.Errorf("%w: %w", ErrSecret, err)
		}
		return s.generate()
	}

	id, err := age.ParseX25519Identity(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable key in %s: %w", ErrSecret, s.source, err)
	}

	s.identity = id
	return id, nil
}

// Generates a new identity and persists it. Must be called with mu held.
func (s *Store) generate() (*age.X25519Identity, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecret, err)
	}

	if err := s.source.Store(id.String()); err != nil {
		return nil, fmt.Errorf("%w: failed to store key in %s: %w", ErrSecret, s.source, err)
	}

	slog.Info("generated new secret key", "source", s.source.String())

	s.identity = id
	return id, nil
}
