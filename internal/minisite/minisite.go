// Package minisite publishes uploaded bundles of static pages under a
// changeable alias prefix. It holds the service layer and the interfaces of
// its collaborators; implementations live in sibling packages.
package minisite

import (
	"errors"

	"minisite-go/internal/archive"
)

const (
	// AssetDir is the storage directory bundles are extracted into, one
	// subdirectory per upload UUID.
	AssetDir = "minisite/static"

	// ArchiveUploadDir is the storage directory uploaded archives are kept in
	// by storage-backed vaults.
	ArchiveUploadDir = "minisite/upload"

	// IndexFile is the entry point of every bundle.
	IndexFile = archive.IndexFile

	// CacheMaxAge is the max-age, in seconds, delivered pages are cached for.
	CacheMaxAge = 2628000
)

var (
	// ErrMissingArchive is returned when the archive file to extract does not exist.
	ErrMissingArchive = errors.New("archive file is missing")

	// ErrArchiveNotFound is returned for unknown archive IDs.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrAliasInUse is returned when an alias is already held by another archive.
	ErrAliasInUse = errors.New("alias is already in use")

	// ErrInvalidAliasPrefix is returned for prefixes that cannot be mounted.
	ErrInvalidAliasPrefix = errors.New("invalid alias prefix")
)
