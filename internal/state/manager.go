package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSystem defines minimum operations required for storage.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem is the FileSystem backed by the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// Manager manages reading/writing the state file.
// It uses a Mutex for thread-safety.
type Manager struct {
	FilePath string
	Current  *State
	FS       FileSystem

	// MaxHistory caps the number of transactions kept on disk. Zero keeps all.
	MaxHistory int

	mu     sync.RWMutex
	saveMu sync.Mutex
}

// NewManager creates a new state manager and loads the existing file.
// A missing file starts a fresh state.
func NewManager(path string, fsys FileSystem) (*Manager, error) {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	mgr := &Manager{
		FilePath: path,
		Current:  NewState(),
		FS:       fsys,
	}

	if err := mgr.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load state %s: %w", path, err)
	}

	return mgr, nil
}

// Load reads the state file.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.FS.ReadFile(m.FilePath)
	if err != nil {
		return err
	}

	loaded := NewState()
	if err := json.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	if loaded.Toggles == nil {
		loaded.Toggles = make(map[string]ToggleEntry)
	}
	m.Current = loaded
	return nil
}

// Save writes current state to disk.
func (m *Manager) Save() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	m.Current.LastRun = time.Now()
	data, err := json.MarshalIndent(m.Current, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.FilePath)
	if err := m.FS.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return m.FS.WriteFile(m.FilePath, data, 0644)
}

// UpdateToggle records the confirmed value of a toggle and saves it.
func (m *Manager) UpdateToggle(entry ToggleEntry) error {
	m.mu.Lock()
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("%s:%s", entry.Kind, entry.Identity)
	}
	if entry.LastApplied.IsZero() {
		entry.LastApplied = time.Now()
	}
	m.Current.Toggles[entry.ID] = entry
	m.mu.Unlock()

	return m.Save()
}

// Toggle returns the stored entry for id.
func (m *Manager) Toggle(id string) (ToggleEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.Current.Toggles[id]
	return entry, ok
}

// Toggles returns a copy of all stored entries.
func (m *Manager) Toggles() []ToggleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]ToggleEntry, 0, len(m.Current.Toggles))
	for _, entry := range m.Current.Toggles {
		entries = append(entries, entry)
	}
	return entries
}
