package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"minisite-go/internal/minisite"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
// ignorePatterns are applied by FindFiles in addition to the default patterns.
func NewOSFilesystemManager(ignorePatterns []string) (*OSFilesystemManager, error) {
	ignore, err := NewIgnoreMatcher(append(append([]string(nil), defaultIgnorePatterns...), ignorePatterns...))
	if err != nil {
		return nil, err
	}
	return &OSFilesystemManager{ignore: ignore}, nil
}

// Exists reports whether path exists.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat path: %w", err)
}

// isEmptyDir reports whether dir is missing or has no entries.
func (m *OSFilesystemManager) isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("opening directory: %w", err)
	}
	defer f.Close()

	_, err = f.ReadDir(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading directory: %w", err)
	}
	return false, nil
}

// FindFiles discovers regular files under dir, recursively. Ignored files
// and everything below ignored directories are skipped.
func (m *OSFilesystemManager) FindFiles(dir string) ([]minisite.File, error) {
	var files []minisite.File

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("calculating relative path: %w", err)
		}
		if m.ignore.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, minisite.File{
			Path:    p,
			Rel:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return os.Open(path)
}

// RemoveAll removes path and everything below it.
func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// RemoveFile removes a file, then walks up removing each parent directory
// that is left empty. stopAt itself is never removed, and nothing outside
// it is touched. A missing file is not an error.
func (m *OSFilesystemManager) RemoveFile(path string, stopAt string) error {
	path = filepath.Clean(path)
	stopAt = filepath.Clean(stopAt)
	if !strings.HasPrefix(path, stopAt+string(filepath.Separator)) {
		return fmt.Errorf("%s is not below %s", path, stopAt)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}

	for dir := filepath.Dir(path); dir != stopAt; dir = filepath.Dir(dir) {
		empty, err := m.isEmptyDir(dir)
		if err != nil {
			return err
		}
		if !empty {
			return nil
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing empty directory: %w", err)
		}
	}
	return nil
}

// Compile-time check that OSFilesystemManager implements minisite.FilesystemManager interface
var _ minisite.FilesystemManager = (*OSFilesystemManager)(nil)
