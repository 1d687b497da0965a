package flashlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore is the file-storage collaborator the flusher writes through.
type FileStore interface {
	// OpenAppend opens the file for appending, creating it (and parent
	// directories) as needed.
	OpenAppend(path string) (io.WriteCloser, error)
	Exists(path string) bool
	Remove(path string) error
}

// OSFileStore is the default FileStore over the local filesystem.
type OSFileStore struct{}

var _ FileStore = OSFileStore{}

// OpenAppend opens the file for append-only writing.
func (OSFileStore) OpenAppend(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// Exists reports whether the file exists.
func (OSFileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the file.
func (OSFileStore) Remove(path string) error {
	return os.Remove(path)
}
