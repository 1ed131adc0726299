package minisite

import (
	"io"
	"time"

	"minisite-go/internal/urlbag"
)

// File is a regular file found below a directory.
type File struct {
	Path    string // absolute path on disk
	Rel     string // slash-separated path relative to the searched directory
	Size    int64
	ModTime time.Time
}

// FilesystemManager provides an interface for filesystem operations on the
// extraction target.
type FilesystemManager interface {
	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// FindFiles returns the regular files below dir, skipping ignored paths.
	FindFiles(dir string) ([]File, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// RemoveAll removes path and everything below it.
	RemoveAll(path string) error

	// RemoveFile removes a file and then every ancestor directory left empty,
	// stopping at (and never removing) stopAt.
	RemoveFile(path string, stopAt string) error
}

// Storage maps storage URIs to local paths and public URLs.
type Storage interface {
	urlbag.StorageResolver

	// URI returns the storage URI of a path relative to the storage root.
	URI(rel string) string

	// LocalPath maps a storage URI to a path on disk.
	LocalPath(uri string) (string, error)
}
