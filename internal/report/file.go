package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is the on-disk baseline report.
type File struct {
	path string
}

// NewFile creates a handle for the report at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the report's location.
func (f *File) Path() string {
	return f.path
}

// Read returns the current report content.
func (f *File) Read() (string, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read report '%s': %w", f.path, err)
	}
	return string(content), nil
}

// Write replaces the report atomically: the new content is written to a
// temporary file in the same directory and renamed over the original, so a
// crash mid-write can never leave a half-written report.
func (f *File) Write(content string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace report '%s': %w", f.path, err)
	}
	return nil
}
