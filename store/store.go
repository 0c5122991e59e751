// Package store is a small file-backed key-value store used to persist the
// selected quality tier across sessions.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists string key-value pairs as a single JSON file. Values are
// loaded once at construction and written back on every Set.
type Store struct {
	path   string
	values map[string]string
}

// Open loads the store at path, creating the parent directory if needed.
// A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			// A corrupt store is not worth failing startup over; start fresh.
			s.values = make(map[string]string)
		}
	}
	return s, nil
}

// Get returns the stored value and whether the key exists.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores the value and writes the file immediately.
func (s *Store) Set(key, value string) error {
	s.values[key] = value
	return s.flush()
}

// Delete removes a key and writes the file immediately.
func (s *Store) Delete(key string) error {
	delete(s.values, key)
	return s.flush()
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}
