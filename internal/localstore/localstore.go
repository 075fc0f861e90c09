// Package localstore provides a flat synchronous key→string store backed by
// a single JSON file.
//
// It mirrors the original deployment's localStorage: a small, always-loaded
// map with no schema. The configuration layer keeps text overrides and the
// catalog override here, and the media resolver consults it as the legacy
// fallback for asset keys that predate the binary store.
package localstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store is a key→string map persisted as one JSON object.
//
// Every mutation rewrites the whole file through a temp file and rename, so
// a batch applied with [Store.Apply] is atomic on disk. Reads never touch
// the filesystem.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open loads the store from path.
//
// A missing file yields an empty store. An unreadable or unparseable file is
// a storage-unavailable condition: it is logged and treated as empty, per
// the "no override" recovery policy, so the site keeps serving defaults.
func Open(path string) *Store {
	s := &Store{path: path, values: map[string]string{}}
	if err := s.Reload(); err != nil {
		slog.Warn("localstore unavailable, starting empty", "path", path, "err", err)
	}
	return s
}

// Reload re-reads the backing file, replacing the in-memory map.
//
// Called at open and by the filesystem watcher when the file changes on
// disk (e.g. the owner hand-edits it).
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.values = map[string]string{}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read store file %s: %w", s.path, err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key, and whether it is present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set writes one key synchronously.
func (s *Store) Set(key, value string) error {
	return s.Apply(map[string]string{key: value}, nil)
}

// Remove deletes one key. Absence is not an error.
func (s *Store) Remove(key string) error {
	return s.Apply(nil, []string{key})
}

// Keys returns the present keys with the given prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Apply sets and removes keys in a single atomic file rewrite.
//
// Either every change lands or none do: the new map is persisted to a temp
// file first and renamed over the old one, and the in-memory map is only
// swapped after the rename succeeds.
func (s *Store) Apply(set map[string]string, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	maps.Copy(next, set)
	for _, k := range remove {
		delete(next, k)
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) persist(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".local-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit store file: %w", err)
	}
	return nil
}
