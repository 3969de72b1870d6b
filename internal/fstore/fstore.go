// Package fstore provides the small set of file primitives the state
// stores rely on: read-if-exists, atomic replace, and delete-if-exists.
package fstore

import (
	"errors"
	"os"
	"path/filepath"
)

// Store roots all paths under a single data directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: dir}, nil
}

// Path resolves name inside the store's root.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name)
}

// Read returns the file's contents. A missing file yields (nil, false, nil)
// so callers can treat "no file" as "no state".
func (s *Store) Read(name string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Write atomically replaces the file: the bytes land in a temp file first
// and a rename publishes them, so readers never observe a partial file.
func (s *Store) Write(name string, data []byte) error {
	path := s.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Remove deletes the file if it exists.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
