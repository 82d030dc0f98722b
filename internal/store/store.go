// Package store persists settings documents under a root directory, keyed by
// hierarchical logical paths such as `subfolder\Video Conference`.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when nothing is stored at a path.
var ErrNotFound = errors.New("settings not found")

// Store reads and writes settings documents by logical path.
type Store interface {
	Get(path string) ([]byte, error)
	Save(path string, blob []byte) error
}

// settingsFile is the file name used for module directories.
const settingsFile = "settings.json"

// SubPath joins a settings subfolder and a module name the way module
// settings are addressed: `subfolder\module`.
func SubPath(subfolder, module string) string {
	return subfolder + `\` + module
}

// FileStore keeps each document in its own file under Root. A path naming a
// .json file maps to that file; any other path is a module directory holding
// settings.json.
type FileStore struct {
	Root string

	mu sync.Mutex
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Root: dir}
}

// Resolve maps a logical path to a file name under Root.
func (s *FileStore) Resolve(path string) (string, error) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '\\' || r == '/' })
	if len(parts) == 0 {
		return "", fmt.Errorf("empty settings path %q", path)
	}
	for _, p := range parts {
		if p == "." || p == ".." {
			return "", fmt.Errorf("invalid settings path %q", path)
		}
	}
	if !strings.EqualFold(filepath.Ext(parts[len(parts)-1]), ".json") {
		parts = append(parts, settingsFile)
	}
	return filepath.Join(append([]string{s.Root}, parts...)...), nil
}

// Get returns the document stored at path.
func (s *FileStore) Get(path string) ([]byte, error) {
	name, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Save writes blob to path, replacing the previous document atomically.
func (s *FileStore) Save(path string, blob []byte) error {
	name, err := s.Resolve(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.Printf("[Store] Saved %s (%d bytes)", path, len(blob))
	return nil
}
