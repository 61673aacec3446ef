package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/skodjob/test-frame-sub000/internal/sentinel"
)

// ErrEmptyPath is returned when a destination path is empty.
const ErrEmptyPath = sentinel.Error("destination path must not be empty")

// DefaultFileMode is the mode used for artifact files.
const DefaultFileMode os.FileMode = 0o644

// WriteFile atomically writes data to path, creating parent directories as
// needed. The content lands in a temp file in the same directory and is
// renamed over path after an fsync.
func WriteFile(path string, data []byte) error {
	return WriteFrom(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFrom atomically writes whatever fill produces to path. It is used for
// streamed content such as container logs. On any failure the temp file is
// removed and path is left untouched.
func WriteFrom(path string, fill func(w io.Writer) error) (retErr error) {
	if path == "" {
		return ErrEmptyPath
	}
	if err := EnsureDirForFile(path); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(DefaultFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return finalize(tmp, tmpPath, path)
}

// finalize syncs and closes the temp file, then renames it to dst.
func finalize(f *os.File, tmpPath, dst string) error {
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename temp file to destination: %w", err)
	}
	return nil
}
