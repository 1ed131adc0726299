package minisite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"minisite-go/internal/archive"
	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/urlbag"
)

// Service is the orchestration layer that coordinates across all components
// to perform the operations needed by the CLI and the HTTP server.
type Service struct {
	database    Database
	vault       Vault
	fsmgr       FilesystemManager
	storage     Storage
	encryptor   Encryptor
	coordinator *Coordinator
	rc          urlbag.RequestContext
	logger      Logger
	clock       Clock
	idgen       IDGenerator
}

// NewService creates a new Service with the provided dependencies.
// encryptor may be nil when archives are never stored encrypted.
func NewService(database Database, vault Vault, fsmgr FilesystemManager, storage Storage, encryptor Encryptor, policy archive.Policy, rc urlbag.RequestContext, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database:    database,
		vault:       vault,
		fsmgr:       fsmgr,
		storage:     storage,
		encryptor:   encryptor,
		coordinator: NewCoordinator(database, fsmgr, storage, policy, rc, logger),
		rc:          rc,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
	}
}

// ParentContext identifies the content the bundle was uploaded for.
type ParentContext struct {
	EntityType   string
	EntityBundle string
	EntityID     string
	Language     string
	FieldName    string
}

// UploadRequest describes an archive to publish.
type UploadRequest struct {
	Path        string // local path of the archive file
	Filename    string // name the archive was uploaded under; defaults to the base of Path
	Parent      ParentContext
	AliasPrefix string // mount point; empty leaves the bundle unaliased
	Encrypt     bool   // store the archive encrypted in the vault
}

// Validate checks an archive without storing anything.
func (s *Service) Validate(archivePath, filename string) (archive.Result, error) {
	if filename == "" {
		filename = archivePath
	}
	return s.coordinator.Inspect(archivePath, filename)
}

// Upload validates an archive, keeps it in the vault, extracts it and
// registers its assets. When req.AliasPrefix is set the bundle is mounted
// there as well. Nothing is kept when any step fails, mounting included.
func (s *Service) Upload(req UploadRequest) (*sqlc.Archive, []*Asset, error) {
	if req.Filename == "" {
		req.Filename = req.Path
	}

	result, err := s.Validate(req.Path, req.Filename)
	if err != nil {
		return nil, nil, err
	}
	if err := result.Err(); err != nil {
		s.logger.Warn("archive rejected", "file", req.Filename, "violations", len(result.Violations))
		return nil, nil, err
	}

	if req.Encrypt && s.encryptor == nil {
		return nil, nil, fmt.Errorf("encryption requested but no encryptor is configured")
	}

	arc := &sqlc.Archive{
		ID:           s.idgen.New(),
		Filename:     filepath.Base(req.Filename),
		Format:       string(archive.FormatOf(req.Filename)),
		Encrypted:    req.Encrypt,
		EntityType:   req.Parent.EntityType,
		EntityBundle: req.Parent.EntityBundle,
		EntityID:     req.Parent.EntityID,
		Language:     req.Parent.Language,
		FieldName:    req.Parent.FieldName,
		CreatedAt:    s.clock.Now(),
	}

	checksum, size, err := s.storeArchive(arc.ID, req.Path, req.Encrypt)
	if err != nil {
		return nil, nil, err
	}
	arc.Checksum = checksum
	arc.Size = size

	if err := s.database.CreateArchive(arc); err != nil {
		s.discardVaultArchive(arc.ID)
		return nil, nil, err
	}

	assets, err := s.coordinator.Extract(ExtractRequest{Archive: arc, Path: req.Path})
	if err != nil {
		if delErr := s.database.DeleteArchive(arc); delErr != nil {
			s.logger.Error("removing archive record", "archive", arc.ID, "error", delErr)
		}
		s.discardVaultArchive(arc.ID)
		return nil, nil, err
	}

	s.logger.Info("archive uploaded", "archive", arc.ID, "file", arc.Filename, "assets", len(assets))

	if req.AliasPrefix != "" {
		aliased, err := s.SetAliasPrefix(arc.ID, req.AliasPrefix)
		if err != nil {
			if delErr := s.Delete(arc.ID); delErr != nil {
				s.logger.Error("removing unmounted archive", "archive", arc.ID, "error", delErr)
			}
			return nil, nil, err
		}
		assets = aliased
	}

	return arc, assets, nil
}

// storeArchive copies the archive file into the vault, encrypting it first
// when asked. It returns the SHA-256 checksum and size of the plaintext.
func (s *Service) storeArchive(id, archivePath string, encrypt bool) (string, int64, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", 0, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat archive: %w", err)
	}

	h := sha256.New()
	r := io.TeeReader(f, h)

	if !encrypt {
		if err := s.vault.PutArchive(id, r, info.Size()); err != nil {
			return "", 0, fmt.Errorf("uploading to vault: %w", err)
		}
		return hex.EncodeToString(h.Sum(nil)), info.Size(), nil
	}

	// The vault needs the ciphertext size up front, so spool it first.
	spool, err := os.CreateTemp("", "minisite-archive-*.age")
	if err != nil {
		return "", 0, fmt.Errorf("creating encryption spool: %w", err)
	}
	defer os.Remove(spool.Name())
	defer spool.Close()

	if err := s.encryptor.Encrypt(r, spool); err != nil {
		return "", 0, fmt.Errorf("encrypting archive: %w", err)
	}
	encSize, err := spool.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", 0, fmt.Errorf("sizing encrypted archive: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewinding encrypted archive: %w", err)
	}
	if err := s.vault.PutArchive(id, spool, encSize); err != nil {
		return "", 0, fmt.Errorf("uploading to vault: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), nil
}

func (s *Service) discardVaultArchive(id string) {
	if err := s.vault.DeleteArchive(id); err != nil {
		s.logger.Error("removing archive from vault", "archive", id, "error", err)
	}
}

// findArchive returns the archive with id or ErrArchiveNotFound.
func (s *Service) findArchive(id string) (*sqlc.Archive, error) {
	arc, err := s.database.FindArchive(id)
	if err != nil {
		return nil, err
	}
	if arc == nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, id)
	}
	return arc, nil
}

// ListArchives returns all uploaded archives, oldest first.
func (s *Service) ListArchives() ([]*sqlc.Archive, error) {
	return s.database.ListArchives()
}

// ListAssets returns the assets of one archive.
func (s *Service) ListAssets(archiveID string) ([]*Asset, error) {
	arc, err := s.findArchive(archiveID)
	if err != nil {
		return nil, err
	}
	return s.assetsOf(arc)
}

func (s *Service) assetsOf(arc *sqlc.Archive) ([]*Asset, error) {
	records, err := s.database.FindAssetsByArchive(arc)
	if err != nil {
		return nil, err
	}
	assets := make([]*Asset, 0, len(records))
	for _, r := range records {
		a, err := NewAsset(r, arc, s.rc, s.storage)
		if err != nil {
			return nil, fmt.Errorf("decoding asset %s: %w", r.Source, err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// FindByURI returns the asset stored at uri, or nil.
func (s *Service) FindByURI(uri string) (*Asset, error) {
	record, err := s.database.FindAssetBySource(uri)
	if err != nil || record == nil {
		return nil, err
	}
	return s.wrap(record)
}

func (s *Service) wrap(record *sqlc.Asset) (*Asset, error) {
	arc, err := s.database.FindArchive(record.ArchiveID)
	if err != nil {
		return nil, err
	}
	return NewAsset(record, arc, s.rc, s.storage)
}

// GetHistory returns the most recent operations.
func (s *Service) GetHistory(limit int) ([]*sqlc.Operation, error) {
	return s.database.ListOperations(limit)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
