package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirMode is the mode used for artifact directories.
const DefaultDirMode os.FileMode = 0o755

// EnsureDir creates path and any missing parents. An existing directory is
// not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DefaultDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile creates the parent directory of filePath.
func EnsureDirForFile(filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", filePath, err)
	}
	return nil
}
