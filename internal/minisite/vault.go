package minisite

import "io"

// Vault provides an interface for durable storage of uploaded archives.
// All operations use io.Reader/io.Writer for streaming so archives are never
// loaded entirely into memory.
type Vault interface {
	// PutArchive stores the uploaded archive with the given ID.
	// size is the number of bytes that will be read from r.
	PutArchive(id string, r io.Reader, size int64) error

	// GetArchive retrieves an archive by ID and writes it to w.
	GetArchive(id string, w io.Writer) error

	// DeleteArchive removes an archive. Deleting a missing archive is not an error.
	DeleteArchive(id string) error

	// PutMetadata stores a named metadata item for a specific site.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the metadata for consistency checks.
	// Known names: "db" (SQLite database), "public_key", "private_key".
	PutMetadata(siteID string, name string, r io.Reader, size int64, version int64) error

	// GetMetadata retrieves a named metadata item for a specific site and writes it to w.
	GetMetadata(siteID string, name string, w io.Writer) error

	// GetMetadataVersion returns the metadata version for a named item on a site.
	// Returns 0 if no metadata has been stored for this site/name.
	GetMetadataVersion(siteID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
