package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Manager handles file storage under the output directory. File existence is the only
// record of what has been downloaded; no manifest is kept.
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager
func NewManager(outputDir string) *Manager {
	return &Manager{outputDir: outputDir}
}

// EnsureDir creates the output directory if it doesn't exist
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Exists reports whether path is present on disk
func (m *Manager) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// Save streams r into path. Data goes to a temporary file in the same directory that is
// renamed into place once complete, so an interrupted write never leaves a file at path.
func (m *Manager) Save(r io.Reader, path string) (int64, error) {
	out, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return n, nil
}

// SetTimes sets the access and modification times of path to t.
// Creation time cannot be set portably and is left untouched.
func (m *Manager) SetTimes(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("failed to set times on %s: %w", path, err)
	}
	return nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Count returns the number of regular files in the output directory
func (m *Manager) Count() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count, nil
}
