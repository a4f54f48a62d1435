package nlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"agentos/internal/domain"
)

// FilePreferencesStore persists model preferences as a small JSON file.
// Writes are serialized with a mutex and go through a temp-file rename.
type FilePreferencesStore struct {
	mu   sync.Mutex
	path string
}

// NewFilePreferencesStore creates a store backed by the file at path.
func NewFilePreferencesStore(path string) *FilePreferencesStore {
	return &FilePreferencesStore{path: path}
}

// Load reads the preferences record. A missing file returns the zero
// record with no error; callers fall back to config defaults.
func (s *FilePreferencesStore) Load() (domain.ModelPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ModelPreferences{}, nil
		}
		return domain.ModelPreferences{}, fmt.Errorf("%w: read preferences: %v", domain.ErrStoreFailure, err)
	}

	var prefs domain.ModelPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		// Corrupt cache is not fatal; defaults remain authoritative.
		return domain.ModelPreferences{}, nil
	}
	return prefs, nil
}

// Save writes the record, creating parent directories as needed.
func (s *FilePreferencesStore) Save(prefs domain.ModelPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create preferences dir: %v", domain.ErrStoreFailure, err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal preferences: %v", domain.ErrStoreFailure, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write preferences: %v", domain.ErrStoreFailure, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: rename preferences: %v", domain.ErrStoreFailure, err)
	}
	return nil
}

// MemoryPreferencesStore is an in-memory PreferencesStore for tests.
type MemoryPreferencesStore struct {
	mu    sync.Mutex
	prefs domain.ModelPreferences
}

// NewMemoryPreferencesStore creates an empty in-memory store.
func NewMemoryPreferencesStore() *MemoryPreferencesStore {
	return &MemoryPreferencesStore{}
}

func (s *MemoryPreferencesStore) Load() (domain.ModelPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

func (s *MemoryPreferencesStore) Save(prefs domain.ModelPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
	return nil
}
