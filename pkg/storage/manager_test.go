package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "album")
	manager := NewManager(dir)

	if err := manager.EnsureDir(); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}
	if n, _ := manager.Count(); n != 0 {
		t.Errorf("Expected empty directory, got %d files", n)
	}

	path := filepath.Join(dir, "abc.jpg")
	exists, err := manager.Exists(path)
	if err != nil || exists {
		t.Fatalf("Expected missing file, got exists=%v err=%v", exists, err)
	}

	data := []byte("test photo data")
	n, err := manager.Save(bytes.NewReader(data), path)
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got %d", len(data), n)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Error("File content does not match expected data")
	}

	if exists, _ := manager.Exists(path); !exists {
		t.Error("Expected saved file to exist")
	}
	if n, _ := manager.Count(); n != 1 {
		t.Errorf("Expected 1 file, got %d", n)
	}
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)
	path := filepath.Join(dir, "broken.mp4")

	if _, err := manager.Save(failingReader{}, path); err == nil {
		t.Fatal("Expected save to fail")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files, found %d", len(entries))
	}
}

func TestSetTimes(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	captured := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := manager.SetTimes(path, captured); err != nil {
		t.Fatalf("SetTimes failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(captured) {
		t.Errorf("Expected mtime %v, got %v", captured, info.ModTime())
	}

	if err := manager.SetTimes(filepath.Join(dir, "missing"), captured); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestCountMissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "nope"))
	n, err := manager.Count()
	if err != nil || n != 0 {
		t.Errorf("Expected 0, nil; got %d, %v", n, err)
	}
}
