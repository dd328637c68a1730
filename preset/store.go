package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists preset documents by name. The manager itself is purely
// in-memory; persistence is a caller concern wired through this port.
type Store interface {
	Save(name string, doc []byte) error
	Load(name string) ([]byte, error)
}

// FileStore keeps presets as .json files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preset: create store dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(name string) string {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") {
		base += ".json"
	}

	return filepath.Join(fs.dir, base)
}

// Save writes the document, replacing any existing preset of the same name.
func (fs *FileStore) Save(name string, doc []byte) error {
	if err := os.WriteFile(fs.path(name), doc, 0o644); err != nil {
		return fmt.Errorf("preset: save %q: %w", name, err)
	}

	return nil
}

// Load reads a previously saved document.
func (fs *FileStore) Load(name string) ([]byte, error) {
	doc, err := os.ReadFile(fs.path(name))
	if err != nil {
		return nil, fmt.Errorf("preset: load %q: %w", name, err)
	}

	return doc, nil
}

// List returns the names of all stored presets, without the .json suffix.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("preset: list store: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}

	return names, nil
}
