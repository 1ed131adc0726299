package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFormat is returned for files that are not a readable archive of
// a supported container type.
var ErrInvalidFormat = errors.New("invalid archive format")

// ErrUnsafeEntry is returned when an entry would be written outside the
// destination directory or is a link.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Format identifies an archive container type.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

// SupportedExtensions lists the archive extensions accepted for upload.
const SupportedExtensions = "zip tar"

// Archiver reads one archive.
type Archiver interface {
	// Entries lists entry paths; directories end in "/".
	Entries() ([]string, error)

	// Extract writes every entry below destDir.
	Extract(destDir string) error

	Close() error
}

// FormatOf returns the archive format implied by filename, or "" if the
// extension is not supported.
func FormatOf(filename string) Format {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatTarZst
	case strings.HasSuffix(name, ".tar"):
		return FormatTar
	case strings.HasSuffix(name, ".zip"):
		return FormatZip
	default:
		return ""
	}
}

// Open opens the archive stored at path. filename is the name the archive
// was uploaded under and selects the format; it may equal path.
func Open(path, filename string) (Archiver, error) {
	format := FormatOf(filename)
	if format == "" {
		return nil, fmt.Errorf("%w: unsupported archive extension for %q", ErrInvalidFormat, filepath.Base(filename))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, path)
	}

	switch format {
	case FormatZip:
		return openZip(path)
	default:
		return openTar(path, format)
	}
}

// safeTarget resolves an entry name below destDir, refusing absolute paths
// and names that climb out with "..".
func safeTarget(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." {
		return destDir, nil
	}
	if clean == "" || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}

	target := filepath.Join(destDir, clean)
	rel, err := filepath.Rel(destDir, target)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsafeEntry, name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return target, nil
}

// writeEntry creates target and copies r into it.
func writeEntry(target string, copyFn func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := copyFn(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return f.Close()
}
