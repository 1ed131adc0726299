package minisite

import (
	"database/sql"

	"minisite-go/internal/database/sqlc"
)

// Database provides an interface for metadata storage operations.
// Find methods return nil and no error when nothing matches.
type Database interface {
	// Archive operations

	// CreateArchive records an uploaded archive. ID and CreatedAt are set by the caller.
	CreateArchive(archive *sqlc.Archive) error

	// FindArchive returns the archive with the given ID.
	FindArchive(id string) (*sqlc.Archive, error)

	// FindArchiveByAliasPrefix returns the most recent archive mounted at prefix.
	FindArchiveByAliasPrefix(prefix string) (*sqlc.Archive, error)

	// ListArchives returns all archives, oldest first.
	ListArchives() ([]*sqlc.Archive, error)

	// DeleteArchive deletes an archive together with its assets.
	DeleteArchive(archive *sqlc.Archive) error

	// Asset operations

	// FindAssetBySource returns the asset stored at the given storage path.
	FindAssetBySource(source string) (*sqlc.Asset, error)

	// FindAssetByAlias returns the asset published under alias.
	FindAssetByAlias(alias string) (*sqlc.Asset, error)

	// FindAssetsByArchive returns the assets of an archive ordered by source.
	FindAssetsByArchive(archive *sqlc.Archive) ([]*sqlc.Asset, error)

	// SaveAsset inserts an asset or, when one with the same source exists,
	// updates its file fields. Existing ID, CreatedAt and Alias are kept.
	SaveAsset(asset *sqlc.Asset) (*sqlc.Asset, error)

	// DeleteAsset deletes a single asset record.
	DeleteAsset(asset *sqlc.Asset) error

	// UpdateAliases atomically sets the archive's alias prefix and the alias
	// of each listed asset (keyed by asset ID).
	UpdateAliases(archive *sqlc.Archive, prefix sql.NullString, aliases map[string]sql.NullString) error

	// Operation tracking

	// CreateOperation records the start of a mutating command.
	CreateOperation(operation string, parameters string) (*sqlc.Operation, error)

	// FinishOperation records the end of a command with its final status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*sqlc.Operation, error)

	// MaxOperationID returns the highest operation ID, or 0.
	MaxOperationID() (int64, error)

	// Close closes the database connection.
	Close() error
}
