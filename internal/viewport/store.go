package viewport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"canvasboard/internal/domain"
)

// FileStore keeps the viewport as a small JSON document on disk.
type FileStore struct {
	path string
}

// NewFileStore stores the viewport in dir/canvas-viewport.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, StateKey+".json")}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) LoadViewport() (domain.Viewport, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Viewport{}, false, nil
	}
	if err != nil {
		return domain.Viewport{}, false, fmt.Errorf("read viewport: %w", err)
	}
	var v domain.Viewport
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Viewport{}, false, fmt.Errorf("parse viewport: %w", err)
	}
	return v, true, nil
}

func (s *FileStore) SaveViewport(v domain.Viewport) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create viewport dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write viewport: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// MemoryStore keeps the viewport in memory. Used by tests and headless runs.
type MemoryStore struct {
	mu    sync.Mutex
	v     domain.Viewport
	saved bool
	Saves int
}

func (s *MemoryStore) LoadViewport() (domain.Viewport, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, s.saved, nil
}

func (s *MemoryStore) SaveViewport(v domain.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	s.saved = true
	s.Saves++
	return nil
}
