package users

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists a Manager's accounts to a JSON file, write-then-rename,
// matching the teacher's internal/playlist/store.go idiom.
type Store struct {
	path string
}

// NewStore creates a Store writing to path, creating its parent directory
// if necessary.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create user store directory %q: %w", dir, err)
	}
	return &Store{path: path}, nil
}

// Save serialises every account in m to disk atomically.
func (s *Store) Save(m *Manager) error {
	m.mu.RLock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	m.mu.RUnlock()

	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "users-*.json.tmp")
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads previously saved accounts into m, replacing its contents.
func (s *Store) Load(m *Manager) error {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read user store: %w", err)
	}
	var list []*User
	if err := json.Unmarshal(buf, &list); err != nil {
		return fmt.Errorf("unmarshal user store: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*User, len(list))
	for _, u := range list {
		m.users[u.Name] = u
	}
	return nil
}

// Exists reports whether the store file already exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
