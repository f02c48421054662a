package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists a Manager's scheduled actions to a JSON file,
// write-then-rename, matching every other store in this codebase.
type Store struct {
	path string
}

// NewStore creates a Store writing to path, creating its parent
// directory if necessary.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create schedule store directory %q: %w", dir, err)
	}
	return &Store{path: path}, nil
}

// Save serialises every action in m to disk atomically.
func (s *Store) Save(m *Manager) error {
	buf, err := json.MarshalIndent(m.All(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "schedule-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads previously saved actions into m, replacing its contents.
func (s *Store) Load(m *Manager) error {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read schedule store: %w", err)
	}
	var list []*Action
	if err := json.Unmarshal(buf, &list); err != nil {
		return fmt.Errorf("unmarshal schedule store: %w", err)
	}
	m.Restore(list)
	return nil
}

// Exists reports whether the store file already exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
