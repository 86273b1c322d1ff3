package webclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryMarkers is an in-process MarkerStore.
type MemoryMarkers struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryMarkers creates an empty MemoryMarkers.
func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{values: make(map[string]string)}
}

func (m *MemoryMarkers) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryMarkers) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryMarkers) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileMarkers persists markers as a JSON object in one file, readable only
// by the owner.
type FileMarkers struct {
	path string
	mu   sync.Mutex
}

// NewFileMarkers uses the file at path, which need not exist yet.
func NewFileMarkers(path string) *FileMarkers {
	return &FileMarkers{path: path}
}

func (f *FileMarkers) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (f *FileMarkers) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileMarkers) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileMarkers) load() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse markers: %w", err)
	}
	return values, nil
}

func (f *FileMarkers) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create markers dir: %w", err)
	}
	return os.WriteFile(f.path, data, 0o600)
}
