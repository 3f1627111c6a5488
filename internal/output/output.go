package output

import (
	"fmt"
	"path/filepath"

	"bulkgen/internal/runstore"
)

// Writer persists generated image bytes at a destination path.
type Writer interface {
	Write(path string, data []byte) error
}

// FSWriter writes images to the local filesystem, creating parent
// directories (output root and per-combination subfolders) on demand.
type FSWriter struct{}

func (FSWriter) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := runstore.Mkdir(dir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := runstore.WriteBytes(path, data); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// Discard is a Writer that drops everything, used by dry runs.
type Discard struct{}

func (Discard) Write(string, []byte) error { return nil }
