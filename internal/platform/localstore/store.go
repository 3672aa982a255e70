// Package localstore implements the namespaced persistent key-value store
// backing carts, wizard drafts, orders, and player state. Each key maps to one
// JSON file on local disk; reads and writes are synchronous and guarded by a
// single mutex. Unparsable values degrade to "not found" rather than failing,
// so a corrupt draft never takes the process down.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrKeyNotFound indicates the key is absent or its stored value could not be
// decoded.
var ErrKeyNotFound = errors.New("localstore: key not found")

// ErrInvalidKey indicates the key contains characters outside the allowed set.
var ErrInvalidKey = errors.New("localstore: invalid key")

const fileExtension = ".json"

// Store is a JSON file-per-key store rooted at a single directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Open ensures the backing directory exists and returns a Store over it.
func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("localstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Put serialises value as JSON under key, replacing any previous value.
// The write goes through a temp file and rename so readers never observe a
// partially written value.
func (s *Store) Put(key string, value any) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	return nil
}

// Get decodes the stored value into out. Missing keys and undecodable values
// both return ErrKeyNotFound.
func (s *Store) Get(key string, out any) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("localstore: read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ErrKeyNotFound
	}
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("localstore: list: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileExtension) {
			continue
		}
		key := decodeKey(strings.TrimSuffix(name, fileExtension))
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping verifies the backing directory is writable; used by health checks.
func (s *Store) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe, err := os.CreateTemp(s.dir, "ping-*")
	if err != nil {
		return fmt.Errorf("localstore: ping: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

func (s *Store) pathFor(key string) (string, error) {
	encoded, err := encodeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, encoded+fileExtension), nil
}

// Keys use "/" as the namespace separator, e.g. "cart/user-1". Segments are
// restricted to a filename-safe charset so the mapping to disk is reversible.
func encodeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "__") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_' || r == '/':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return strings.ReplaceAll(key, "/", "__"), nil
}

func decodeKey(name string) string {
	return strings.ReplaceAll(name, "__", "/")
}
