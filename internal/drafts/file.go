package drafts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/careers-portal/internal/schemas"
)

// FileBackend stores one JSON snapshot file per key under a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("draft directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create draft directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "__", "..", "_")

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}

// Load implements Backend. Snapshots that fail the draft snapshot schema are rejected.
func (f *FileBackend) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if err := schemas.ValidateDraftSnapshot(data); err != nil {
		return nil, fmt.Errorf("draft snapshot %s: %w", key, err)
	}
	return data, nil
}

// Save implements Backend using a temp file and rename.
func (f *FileBackend) Save(_ context.Context, key string, data []byte) error {
	path := f.path(key)

	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// Delete implements Backend.
func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
