package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"minisite-go/internal/minisite"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores archives and metadata as files in a directory structure:
//
//	<root>/
//	  archives/
//	    <id>                  (uploaded archives, named by archive ID)
//	  metadata/
//	    <siteID>/<name>       (per-site metadata files)
//	    <siteID>/<name>.version
type FileSystemVault struct {
	name        string
	root        string
	archiveDir  string
	metadataDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	archiveDir := filepath.Join(root, "archives")
	metadataDir := filepath.Join(root, "metadata")

	// Create directory structure
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		archiveDir:  archiveDir,
		metadataDir: metadataDir,
	}, nil
}

// archivePath returns where the archive with id is kept. IDs are plain
// names; anything with a separator is rejected.
func (v *FileSystemVault) archivePath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid archive id: %q", id)
	}
	return filepath.Join(v.archiveDir, id), nil
}

// PutArchive stores an archive under its ID, replacing any previous copy.
func (v *FileSystemVault) PutArchive(id string, r io.Reader, size int64) error {
	destPath, err := v.archivePath(id)
	if err != nil {
		return err
	}
	return v.writeFile(destPath, r, size)
}

// GetArchive retrieves an archive by ID and writes it to w.
func (v *FileSystemVault) GetArchive(id string, w io.Writer) error {
	srcPath, err := v.archivePath(id)
	if err != nil {
		return err
	}
	return v.readFile(srcPath, w, fmt.Sprintf("archive not found: %s", id))
}

// DeleteArchive removes an archive. Missing archives are ignored.
func (v *FileSystemVault) DeleteArchive(id string) error {
	p, err := v.archivePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove archive: %w", err)
	}
	return nil
}

// PutMetadata stores a named metadata item for a site along with a version marker.
func (v *FileSystemVault) PutMetadata(siteID string, name string, r io.Reader, size int64, version int64) error {
	dir := filepath.Join(v.metadataDir, siteID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create site metadata directory: %w", err)
	}

	if err := v.writeFile(filepath.Join(dir, name), r, size); err != nil {
		return err
	}

	// Write version file
	versionData := strconv.FormatInt(version, 10)
	return os.WriteFile(filepath.Join(dir, name+".version"), []byte(versionData), 0644)
}

// GetMetadataVersion returns the metadata version for a named item on a site.
// Returns 0 if no version file exists.
func (v *FileSystemVault) GetMetadataVersion(siteID string, name string) (int64, error) {
	versionPath := filepath.Join(v.metadataDir, siteID, name+".version")
	data, err := os.ReadFile(versionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetMetadata retrieves a named metadata item for a site and writes it to w.
func (v *FileSystemVault) GetMetadata(siteID string, name string, w io.Writer) error {
	srcPath := filepath.Join(v.metadataDir, siteID, name)
	return v.readFile(srcPath, w, fmt.Sprintf("metadata %q not found for site: %s", name, siteID))
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	// Check that root directory exists and is a directory
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.archiveDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from the specified path and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer, notFoundMsg string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

// Compile-time check that FileSystemVault implements minisite.Vault interface
var _ minisite.Vault = (*FileSystemVault)(nil)
