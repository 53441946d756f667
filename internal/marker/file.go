package marker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/IshaanNene/PriceHound/internal/types"
)

// FileMarker is an empty file named <label>.flag under dir.
type FileMarker struct {
	dir  string
	path string
}

// NewFileMarker creates a file marker. The directory is created on Set.
func NewFileMarker(dir, label string) *FileMarker {
	return &FileMarker{
		dir:  dir,
		path: filepath.Join(dir, label+".flag"),
	}
}

func (m *FileMarker) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(m.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", types.ErrMarkerBackend, m.path, err)
}

func (m *FileMarker) Set(_ context.Context) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create marker dir: %v", types.ErrMarkerBackend, err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create marker: %v", types.ErrMarkerBackend, err)
	}
	return f.Close()
}

func (m *FileMarker) Clear(_ context.Context) error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove marker: %v", types.ErrMarkerBackend, err)
	}
	return nil
}

func (m *FileMarker) Location() string { return m.path }

func (m *FileMarker) Close() error { return nil }
