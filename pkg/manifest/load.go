package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Load reads and validates a single manifest document.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFS walks a filesystem tree and loads every .json file as a manifest.
// Non-JSON files are skipped; any invalid manifest aborts the load.
func LoadFS(fsys fs.FS) ([]Manifest, error) {
	var manifests []Manifest
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		f, err := fsys.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		m, err := Load(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		manifests = append(manifests, *m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifests, nil
}

// LoadDir loads every manifest under a directory tree on disk.
func LoadDir(dir string) ([]Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("manifest path %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(filepath.Clean(dir)))
}
