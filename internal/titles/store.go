// Package titles keeps user-supplied display-name overrides, keyed by
// service id and persisted as a small JSON file.
package titles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is constructed once by the top-level wiring and passed by handle
// to whoever needs lookups. Mutations persist atomically: the full map is
// written to a temp file in the same directory, then renamed over the old
// one.
type Store struct {
	path string

	mu        sync.RWMutex
	overrides map[string]string
	version   uint64
}

func NewStore(path string) *Store {
	return &Store{
		path:      path,
		overrides: make(map[string]string),
	}
}

// Load reads the overrides file. A missing file is a fresh start; an
// unreadable or invalid one degrades to an empty map.
func (s *Store) Load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create titles directory: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read titles file: %w", err)
	}

	parsed := make(map[string]string)
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Corrupt file: start empty rather than refuse to boot.
		return nil
	}

	s.mu.Lock()
	s.overrides = parsed
	s.mu.Unlock()
	return nil
}

// Get returns the override for an id, if one is set and non-empty.
func (s *Store) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.overrides[id]
	return v, ok
}

// All returns a copy of every override.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// Version returns the mutation counter. It increments by one on every
// successful Set or Clear that changed something.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set stores an override. It reports false when the stored value was
// already identical, in which case nothing is written. The in-memory map
// is only swapped once the file write succeeded, so memory and disk never
// diverge.
func (s *Store) Set(id, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.overrides[id]; ok && current == title {
		return false, nil
	}
	updated := cloneOverrides(s.overrides)
	updated[id] = title
	if err := s.persist(updated); err != nil {
		return false, err
	}
	s.overrides = updated
	s.version++
	return true, nil
}

// Clear removes an override. It reports false when there was nothing to
// remove. Like Set, the map only changes after a successful write.
func (s *Store) Clear(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overrides[id]; !ok {
		return false, nil
	}
	updated := cloneOverrides(s.overrides)
	delete(updated, id)
	if err := s.persist(updated); err != nil {
		return false, err
	}
	s.overrides = updated
	s.version++
	return true, nil
}

func cloneOverrides(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// persist writes the given map with replace-on-rename semantics.
// Go's JSON encoder sorts map keys, so the serialization is stable.
func (s *Store) persist(overrides map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create titles directory: %w", err)
	}

	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".titles-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp titles file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write titles: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod titles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close titles: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace titles file: %w", err)
	}
	return nil
}
