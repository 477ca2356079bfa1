package titles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "titles.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s
}

func TestStoreSetGetClear(t *testing.T) {
	s := newTempStore(t)

	if _, ok := s.Get("1"); ok {
		t.Error("Get() found an override in a fresh store")
	}

	changed, err := s.Set("1", "My Service")
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if !changed {
		t.Error("Set() changed = false for a new override")
	}

	got, ok := s.Get("1")
	if !ok || got != "My Service" {
		t.Errorf("Get() = %q, %v; want My Service, true", got, ok)
	}

	changed, err = s.Clear("1")
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if !changed {
		t.Error("Clear() changed = false for an existing override")
	}
	if _, ok := s.Get("1"); ok {
		t.Error("Get() found an override after Clear")
	}
}

func TestStoreIdenticalSetIsNoop(t *testing.T) {
	s := newTempStore(t)

	if _, err := s.Set("1", "same"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v := s.Version()

	changed, err := s.Set("1", "same")
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if changed {
		t.Error("Set() changed = true for an identical value")
	}
	if s.Version() != v {
		t.Errorf("Version() = %d after no-op set, want %d", s.Version(), v)
	}
}

func TestStoreClearMissingIsNoop(t *testing.T) {
	s := newTempStore(t)

	changed, err := s.Clear("missing")
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if changed {
		t.Error("Clear() changed = true for a missing override")
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
}

func TestStoreVersionCounter(t *testing.T) {
	s := newTempStore(t)

	if s.Version() != 0 {
		t.Fatalf("Version() = %d on fresh store, want 0", s.Version())
	}

	mustChange := func(changed bool, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("mutation error: %v", err)
		}
		if !changed {
			t.Fatal("mutation reported no change")
		}
	}

	mustChange(s.Set("1", "a"))
	mustChange(s.Set("1", "b"))
	mustChange(s.Clear("1"))

	if s.Version() != 3 {
		t.Errorf("Version() = %d after three mutations, want 3", s.Version())
	}
}

func TestStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.json")

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := s.Set("1", "kept"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, err := s.Set("2", "also kept"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	all := reloaded.All()
	if len(all) != 2 || all["1"] != "kept" || all["2"] != "also kept" {
		t.Errorf("All() = %v after reload", all)
	}
}

func TestStoreNoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "titles.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := s.Set("1", "a"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %q", e.Name())
		}
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "titles.json"))
	if err := s.Load(); err != nil {
		t.Errorf("Load() error for missing file: %v", err)
	}
	if len(s.All()) != 0 {
		t.Error("All() non-empty after loading a missing file")
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Errorf("Load() error for corrupt file: %v", err)
	}
	if len(s.All()) != 0 {
		t.Error("All() non-empty after loading a corrupt file")
	}
}

func TestStoreFailedPersistLeavesMemoryUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.json")

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := s.Set("1", "kept"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// A directory squatting on the file path makes the rename fail.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}

	if _, err := s.Set("2", "lost"); err == nil {
		t.Fatal("Set() = nil error with an unwritable target")
	}
	if _, ok := s.Get("2"); ok {
		t.Error("failed Set left the new value in memory")
	}

	if _, err := s.Clear("1"); err == nil {
		t.Fatal("Clear() = nil error with an unwritable target")
	}
	if got, ok := s.Get("1"); !ok || got != "kept" {
		t.Errorf("Get(1) = %q, %v after failed Clear; want kept, true", got, ok)
	}
	if s.Version() != 1 {
		t.Errorf("Version() = %d after failed mutations, want 1", s.Version())
	}
}

func TestStoreFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.json")
	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := s.Set("1", "a"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}
