package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minisite-go/internal/archive"
	"minisite-go/internal/config"
	"minisite-go/internal/database"
	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/encryption"
	"minisite-go/internal/fs"
	"minisite-go/internal/minisite"
	"minisite-go/internal/server"
	"minisite-go/internal/storage"
	"minisite-go/internal/urlbag"
	"minisite-go/internal/vault"
)

// MetadataName is the vault metadata item holding the database snapshot.
const MetadataName = "minisite.db"

// MinisiteApp is the application layer between the CLI and the minisite Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI values, and manages the DB lifecycle on Close.
type MinisiteApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     minisite.Vault
	fsmgr     minisite.FilesystemManager
	storage   *storage.Resolver
	encryptor minisite.Encryptor
	service   *minisite.Service
	logger    minisite.Logger
	op        *Operation
	logFile   *os.File
}

// NewMinisiteApp creates a fully wired MinisiteApp from the given config.
// operation identifies the CLI command being run (e.g. "Upload", "SetAlias").
// The caller must call Close when done.
func NewMinisiteApp(cfg *config.Config, operation string) (*MinisiteApp, error) {
	if cfg.SiteID == "" {
		return nil, fmt.Errorf("site_id is not configured")
	}

	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	ignore := cfg.Filesystem.Ignore
	if cfg.Filesystem.IgnoreFile != "" {
		fromFile, err := fs.ReadIgnoreFile(cfg.Filesystem.IgnoreFile)
		if err != nil {
			return nil, err
		}
		ignore = append(append([]string(nil), ignore...), fromFile...)
	}
	fsmgr, err := fs.NewOSFilesystemManager(ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid filesystem settings: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.SiteID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	// An in-memory database starts empty every run.
	if cfg.Database.Type == "memory" {
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run `minisite db migrate`): %w", err)
	}

	// Check local DB version against remote vault version.
	remoteVersion, err := v.GetMetadataVersion(cfg.SiteID, MetadataName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking remote metadata version: %w", err)
	}

	localMax, err := db.MaxOperationID()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking local metadata version: %w", err)
	}

	if remoteVersion > localMax {
		db.Close()
		return nil, fmt.Errorf("local database is behind remote (local=%d, remote=%d): run `minisite db pull`", localMax, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store := StorageFromConfig(cfg.Storage)
	rc := urlbag.FixedContext(cfg.BaseURL)

	svc := minisite.NewService(db, v, fsmgr, store, enc, policy, rc, logger, minisite.RealClock{}, minisite.UUIDGenerator{})
	op := NewOperation(operation, "")

	return &MinisiteApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		storage:   store,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// StorageFromConfig builds the storage resolver, defaulting the scheme to public.
func StorageFromConfig(cfg config.StorageConfig) *storage.Resolver {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = storage.DefaultScheme
	}
	return storage.New(scheme, cfg.PublicDir, cfg.PublicURL)
}

// PolicyFromConfig derives the archive validation policy. Unset fields keep
// their defaults; the path length defaults to what the storage scheme leaves
// and may only be lowered.
func PolicyFromConfig(cfg *config.Config) (archive.Policy, error) {
	scheme := cfg.Storage.Scheme
	if scheme == "" {
		scheme = storage.DefaultScheme
	}
	policy := archive.NewPolicy(scheme+"://", minisite.AssetDir)

	if cfg.Validation.AllowedExtensions != "" {
		policy.AllowedExtensions = archive.NormalizeExtensions(cfg.Validation.AllowedExtensions)
	}
	if cfg.Validation.MaxPathLength > 0 {
		policy.MaxPathLength = cfg.Validation.MaxPathLength
	}
	if cfg.Validation.StrayRootDirs != nil {
		policy.AllowedStrayRootDirs = cfg.Validation.StrayRootDirs
	}

	if err := policy.Check(); err != nil {
		return archive.Policy{}, fmt.Errorf("invalid validation settings: %w", err)
	}
	return policy, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *MinisiteApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track records err on the operation so Close stores the right status.
func (a *MinisiteApp) track(err error) error {
	if err != nil {
		a.op.Status = StatusError
	}
	return err
}

// Validate checks an archive without storing it.
func (a *MinisiteApp) Validate(rawPath string) (archive.Result, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return archive.Result{}, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.Validate(absPath, filepath.Base(absPath))
}

// UploadOptions are the optional parts of an upload.
type UploadOptions struct {
	AliasPrefix string
	Encrypt     bool
	Parent      minisite.ParentContext
}

// Upload publishes the archive at rawPath.
func (a *MinisiteApp) Upload(rawPath string, opts UploadOptions) (*sqlc.Archive, []*minisite.Asset, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := a.persistOperation(params("file", absPath, "prefix", opts.AliasPrefix)); err != nil {
		return nil, nil, err
	}

	arc, assets, err := a.service.Upload(minisite.UploadRequest{
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		Parent:      opts.Parent,
		AliasPrefix: opts.AliasPrefix,
		Encrypt:     opts.Encrypt,
	})
	return arc, assets, a.track(err)
}

// SetAlias mounts an archive under prefix.
func (a *MinisiteApp) SetAlias(archiveID, prefix string) ([]*minisite.Asset, error) {
	if err := a.persistOperation(params("archive", archiveID, "prefix", prefix)); err != nil {
		return nil, err
	}
	assets, err := a.service.SetAliasPrefix(archiveID, prefix)
	return assets, a.track(err)
}

// ClearAlias unmounts an archive.
func (a *MinisiteApp) ClearAlias(archiveID string) error {
	if err := a.persistOperation(params("archive", archiveID)); err != nil {
		return err
	}
	return a.track(a.service.ClearAlias(archiveID))
}

// ListArchives returns every uploaded archive.
func (a *MinisiteApp) ListArchives() ([]*sqlc.Archive, error) {
	return a.service.ListArchives()
}

// ListAssets returns the assets of one archive.
func (a *MinisiteApp) ListAssets(archiveID string) ([]*minisite.Asset, error) {
	return a.service.ListAssets(archiveID)
}

// Render writes the served form of the asset at target to w. target is an
// alias path or a storage URI.
func (a *MinisiteApp) Render(target string, w io.Writer) error {
	var (
		asset *minisite.Asset
		err   error
	)
	if strings.Contains(target, "://") {
		asset, err = a.service.FindByURI(target)
	} else {
		asset, err = a.service.FindByAlias(target)
	}
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("no asset found for %s", target)
	}

	content, err := a.service.Render(asset)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Delete removes an archive with all its assets and its vault copy.
func (a *MinisiteApp) Delete(archiveID string) error {
	if err := a.persistOperation(params("archive", archiveID)); err != nil {
		return err
	}
	return a.track(a.service.Delete(archiveID))
}

// Restore re-extracts an archive from the vault. passphrase is only used
// for encrypted archives.
func (a *MinisiteApp) Restore(archiveID string, passphrase func() (string, error)) ([]*minisite.Asset, error) {
	if err := a.persistOperation(params("archive", archiveID)); err != nil {
		return nil, err
	}

	var decryptCtx minisite.DecryptionContext
	if a.encryptor != nil && passphrase != nil {
		arc, err := a.db.FindArchive(archiveID)
		if err != nil {
			return nil, a.track(err)
		}
		if arc != nil && arc.Encrypted {
			p, err := passphrase()
			if err != nil {
				return nil, a.track(fmt.Errorf("reading passphrase: %w", err))
			}
			if decryptCtx, err = a.encryptor.Unlock(p); err != nil {
				return nil, a.track(fmt.Errorf("unlocking key: %w", err))
			}
		}
	}

	assets, err := a.service.Restore(archiveID, decryptCtx)
	return assets, a.track(err)
}

// GetHistory returns the most recent operations.
func (a *MinisiteApp) GetHistory(limit int) ([]*sqlc.Operation, error) {
	return a.service.GetHistory(limit)
}

// Config returns the configuration the app was built from.
func (a *MinisiteApp) Config() *config.Config {
	return a.cfg
}

// Handler returns the HTTP handler serving the site.
func (a *MinisiteApp) Handler() http.Handler {
	return server.New(a.service, a.storage, a.logger, server.NewMetrics()).Router()
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, backs up the DB, and uploads to vault.
// For non-persisted operations: just closes the database.
func (a *MinisiteApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		// Finalize the operation record
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}

		// Snapshot the DB to a temp file
		tmpFile, err := os.CreateTemp("", "minisite-db-backup-*.db")
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("creating temp file for db backup: %w", err)
			}
		}

		var tmpPath string
		if tmpFile != nil {
			tmpPath = tmpFile.Name()
			tmpFile.Close()
			// VACUUM INTO refuses to overwrite an existing file.
			os.Remove(tmpPath)

			if err := a.db.BackupTo(tmpPath); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("backing up database: %w", err)
				}
				tmpPath = "" // skip vault upload
			}
		}

		// Close the database
		if err := a.db.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("closing database: %w", err)
			}
		}

		// Upload DB snapshot to vault with version = operation ID
		if tmpPath != "" {
			if err := a.uploadMetadata(tmpPath, a.op.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
			os.Remove(tmpPath)
		}
	} else {
		// Non-mutating operation: just close the database, no upload
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadMetadata opens the temp DB file and uploads it to the vault as metadata.
func (a *MinisiteApp) uploadMetadata(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.SiteID, MetadataName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}

	return nil
}

// params formats alternating key/value pairs for the operation record,
// skipping empty values.
func params(kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			parts = append(parts, kv[i]+"="+kv[i+1])
		}
	}
	return strings.Join(parts, " ")
}
