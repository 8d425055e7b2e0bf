// Package checkpoint persists one JSON artifact per generated field under a
// working directory. Presence of an artifact marks the field as complete;
// deleting the file is the only way to force regeneration.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"charforge/internal/logging"
)

// ErrCorrupt marks an artifact that exists but cannot be decoded. Callers
// treat it as "not cached" and re-enter their generation path.
var ErrCorrupt = errors.New("checkpoint artifact unreadable")

// Store maps logical field keys to JSON artifact paths.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created lazily on
// the first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the artifact path for a field key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Exists reports whether the field's artifact is present.
func (s *Store) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && !info.IsDir()
}

// Load decodes the field's artifact into out. A missing, unreadable, or
// malformed artifact returns an error wrapping ErrCorrupt; out is left
// untouched so the caller falls back to its zero value and regenerates.
func (s *Store) Load(key string, out interface{}) error {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		logging.CheckpointWarn("load %s: %v", key, err)
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.CheckpointWarn("load %s: malformed artifact: %v", key, err)
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	logging.Checkpoint("loaded %s", key)
	return nil
}

// Save writes the field's artifact, creating the directory if needed and
// fully replacing any previous file.
func (s *Store) Save(key string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := os.WriteFile(s.Path(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	logging.Checkpoint("saved %s", key)
	return nil
}

// Reset removes every artifact, forcing full regeneration on the next run.
func (s *Store) Reset() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
