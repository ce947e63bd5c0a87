// Package snapshot reads and writes the static JSON snapshots served when a live read
// fails or comes back empty. A snapshot is one JSON array per file.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var (
	// ErrNotFound is returned when the snapshot file does not exist
	ErrNotFound = errors.New("snapshot not found")
	// ErrNotArray is returned when the snapshot file is not a JSON array
	ErrNotArray = errors.New("snapshot is not a JSON array")
)

// Store reads and writes snapshot files under a single directory
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a Store rooted at dir on the OS filesystem
func NewStore(dir string) *Store {
	return NewStoreWithFs(afero.NewOsFs(), dir)
}

// NewStoreWithFs creates a Store on any afero filesystem (tests use a MemMapFs)
func NewStoreWithFs(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// Dir returns the directory snapshots are read from
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path of a snapshot file
func (s *Store) Path(file string) string {
	return filepath.Join(s.dir, file)
}

// Load reads a snapshot and returns its elements verbatim
func (s *Store) Load(file string) ([]json.RawMessage, error) {
	path := s.Path(file)
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, path)
	}

	items := make([]json.RawMessage, 0)
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return items, nil
}

// Save writes rows as an indented JSON array, replacing the file atomically.
// It returns the bytes written so callers can publish the same content elsewhere.
func (s *Store) Save(file string, rows any) ([]byte, error) {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", file, err)
	}
	if len(bytes.TrimSpace(data)) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, file)
	}
	data = append(data, '\n')

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	path := s.Path(file)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return nil, fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return data, nil
}
