package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the task list file name used when the caller does
// not supply a path.
const DefaultFileName = "tasks.json"

// Store reads and writes a task list file. Writes go through a
// temporary file in the same directory followed by a rename, so
// readers never observe a partially written list.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the task list file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the task list from disk. A missing file yields an empty
// list, not an error, so append mode works on first run.
func (s *Store) Load() (*TaskList, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TaskList{}, nil
		}
		return nil, fmt.Errorf("reading task list: %w", err)
	}

	var list TaskList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing task list %s: %w", s.path, err)
	}
	if err := list.Validate(); err != nil {
		return nil, fmt.Errorf("task list %s: %w", s.path, err)
	}
	return &list, nil
}

// Save writes the task list atomically, creating parent directories as
// needed.
func (s *Store) Save(list *TaskList) error {
	if list == nil {
		return errors.New("nil task list")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating task directory: %w", err)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task list: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".tasks-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing task list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing task list: %w", err)
	}
	return nil
}
