package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minisite-go/internal/database/migrations"
	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/minisite"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   minisite.Clock
	idgen   minisite.IDGenerator
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock or idgen falls back to the real implementation.
func NewSQLiteDatabase(path string, clock minisite.Clock, idgen minisite.IDGenerator) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock minisite.Clock, idgen minisite.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = minisite.RealClock{}
	}
	if idgen == nil {
		idgen = minisite.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		idgen:   idgen,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// open a second one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Archive operations

func (s *SQLiteDatabase) CreateArchive(archive *sqlc.Archive) error {
	_, err := s.queries.InsertArchive(context.Background(), sqlc.InsertArchiveParams{
		ID:           archive.ID,
		Filename:     archive.Filename,
		Format:       archive.Format,
		Size:         archive.Size,
		Checksum:     archive.Checksum,
		Encrypted:    archive.Encrypted,
		EntityType:   archive.EntityType,
		EntityBundle: archive.EntityBundle,
		EntityID:     archive.EntityID,
		Language:     archive.Language,
		FieldName:    archive.FieldName,
		AliasPrefix:  archive.AliasPrefix,
		CreatedAt:    archive.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindArchive(id string) (*sqlc.Archive, error) {
	archive, err := s.queries.GetArchiveByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding archive: %w", err)
	}
	return &archive, nil
}

func (s *SQLiteDatabase) FindArchiveByAliasPrefix(prefix string) (*sqlc.Archive, error) {
	archive, err := s.queries.GetArchiveByAliasPrefix(context.Background(), sql.NullString{String: prefix, Valid: true})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding archive by alias prefix: %w", err)
	}
	return &archive, nil
}

func (s *SQLiteDatabase) ListArchives() ([]*sqlc.Archive, error) {
	archives, err := s.queries.GetArchives(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	result := make([]*sqlc.Archive, len(archives))
	for i := range archives {
		result[i] = &archives[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteArchive(archive *sqlc.Archive) error {
	if err := s.queries.DeleteArchiveByID(context.Background(), archive.ID); err != nil {
		return fmt.Errorf("deleting archive: %w", err)
	}
	return nil
}

// Asset operations

func (s *SQLiteDatabase) FindAssetBySource(source string) (*sqlc.Asset, error) {
	asset, err := s.queries.GetAssetBySource(context.Background(), source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding asset by source: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteDatabase) FindAssetByAlias(alias string) (*sqlc.Asset, error) {
	asset, err := s.queries.GetAssetByAlias(context.Background(), sql.NullString{String: alias, Valid: true})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding asset by alias: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteDatabase) FindAssetsByArchive(archive *sqlc.Archive) ([]*sqlc.Asset, error) {
	assets, err := s.queries.GetAssetsByArchiveID(context.Background(), archive.ID)
	if err != nil {
		return nil, fmt.Errorf("finding assets by archive: %w", err)
	}

	result := make([]*sqlc.Asset, len(assets))
	for i := range assets {
		result[i] = &assets[i]
	}
	return result, nil
}

// SaveAsset upserts an asset by its source in a single transaction. A new
// asset gets a fresh ID; an existing one keeps its ID, CreatedAt and Alias
// and only has its file fields refreshed.
func (s *SQLiteDatabase) SaveAsset(asset *sqlc.Asset) (*sqlc.Asset, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	now := s.clock.Now()

	existing, err := qtx.GetAssetBySource(ctx, asset.Source)
	if errors.Is(err, sql.ErrNoRows) {
		created, err := qtx.InsertAsset(ctx, sqlc.InsertAssetParams{
			ID:        s.idgen.New(),
			ArchiveID: asset.ArchiveID,
			Source:    asset.Source,
			Alias:     asset.Alias,
			Filemime:  asset.Filemime,
			Filesize:  asset.Filesize,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating asset: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing transaction: %w", err)
		}
		return &created, nil
	} else if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}

	err = qtx.UpdateAssetFile(ctx, sqlc.UpdateAssetFileParams{
		ArchiveID: asset.ArchiveID,
		Filemime:  asset.Filemime,
		Filesize:  asset.Filesize,
		UpdatedAt: now,
		ID:        existing.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("updating asset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	existing.ArchiveID = asset.ArchiveID
	existing.Filemime = asset.Filemime
	existing.Filesize = asset.Filesize
	existing.UpdatedAt = now
	return &existing, nil
}

func (s *SQLiteDatabase) DeleteAsset(asset *sqlc.Asset) error {
	if err := s.queries.DeleteAssetByID(context.Background(), asset.ID); err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}

// UpdateAliases re-mounts an archive in one transaction. All of the
// archive's aliases are cleared before the new ones are written so that a
// new alias may take over one that another asset of the same archive held.
func (s *SQLiteDatabase) UpdateAliases(archive *sqlc.Archive, prefix sql.NullString, aliases map[string]sql.NullString) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	now := s.clock.Now()

	err = qtx.UpdateArchiveAliasPrefix(ctx, sqlc.UpdateArchiveAliasPrefixParams{
		AliasPrefix: prefix,
		ID:          archive.ID,
	})
	if err != nil {
		return fmt.Errorf("updating alias prefix: %w", err)
	}

	assets, err := qtx.GetAssetsByArchiveID(ctx, archive.ID)
	if err != nil {
		return fmt.Errorf("finding assets: %w", err)
	}
	for _, asset := range assets {
		if !asset.Alias.Valid {
			continue
		}
		err := qtx.UpdateAssetAlias(ctx, sqlc.UpdateAssetAliasParams{UpdatedAt: now, ID: asset.ID})
		if err != nil {
			return fmt.Errorf("clearing alias of %s: %w", asset.Source, err)
		}
	}

	for id, alias := range aliases {
		if !alias.Valid {
			continue
		}
		err := qtx.UpdateAssetAlias(ctx, sqlc.UpdateAssetAliasParams{Alias: alias, UpdatedAt: now, ID: id})
		if err != nil {
			return fmt.Errorf("setting alias %s: %w", alias.String, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	archive.AliasPrefix = prefix
	return nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*sqlc.Operation, error) {
	op, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		StartedAt:  s.clock.Now(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*sqlc.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.GetMaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// MigrateUp applies pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.Up(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements minisite.Database interface
var _ minisite.Database = (*SQLiteDatabase)(nil)
