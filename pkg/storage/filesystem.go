package storage

import (
	"os"
	"path/filepath"
)

type filesystemManagement interface {
	writeFile(path string, data []byte) error
	exists(path string) bool
}

type fileManagement struct{}

// writeFile replaces path atomically through a temporary sibling file.
func (fs *fileManagement) writeFile(path string, data []byte) error {
	temporary := filepath.Clean(path) + ".tmp"
	if err := os.WriteFile(temporary, data, 0600); err != nil {
		return err
	}
	return os.Rename(temporary, filepath.Clean(path))
}

func (fs *fileManagement) exists(path string) bool {
	_, err := os.Stat(filepath.Clean(path))
	return err == nil
}
