package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local stores files flat in one directory.
type Local struct {
	dir string
}

// NewLocal returns a store rooted at dir. The directory is created on first Put.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Put writes data to dir/name.
func (l *Local) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", l.dir, err)
	}
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // batch files are not secret
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Get reads dir/key.
func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.Location(key))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Location(key), err)
	}
	return data, nil
}

// List returns the batch file names in dir. A missing directory yields none.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.dir, err)
	}
	var keys []string
	for _, e := range entries {
		if !e.IsDir() && IsBatchFile(e.Name()) {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Location returns the file path of key.
func (l *Local) Location(key string) string {
	return filepath.Join(l.dir, key)
}
