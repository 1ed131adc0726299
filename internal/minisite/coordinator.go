package minisite

import (
	"fmt"

	"minisite-go/internal/archive"
	"minisite-go/internal/database/sqlc"
	"minisite-go/internal/urlbag"
)

// Coordinator extracts validated archives into storage and keeps one asset
// record per extracted file.
type Coordinator struct {
	database Database
	fsmgr    FilesystemManager
	storage  Storage
	policy   archive.Policy
	rc       urlbag.RequestContext
	logger   Logger
}

// NewCoordinator creates a Coordinator with the provided dependencies.
func NewCoordinator(database Database, fsmgr FilesystemManager, storage Storage, policy archive.Policy, rc urlbag.RequestContext, logger Logger) *Coordinator {
	return &Coordinator{
		database: database,
		fsmgr:    fsmgr,
		storage:  storage,
		policy:   policy,
		rc:       rc,
		logger:   logger,
	}
}

// ExtractRequest names an archive record and the local file holding it.
type ExtractRequest struct {
	Archive *sqlc.Archive
	Path    string
}

// Inspect opens the archive at path and validates its entries. filename
// selects the archive format. The returned error is ErrMissingArchive,
// archive.ErrInvalidFormat or archive.ErrInvalidFileList; content
// violations are reported in the Result.
func (c *Coordinator) Inspect(archivePath, filename string) (archive.Result, error) {
	exists, err := c.fsmgr.Exists(archivePath)
	if err != nil {
		return archive.Result{}, fmt.Errorf("checking archive file: %w", err)
	}
	if !exists {
		return archive.Result{}, fmt.Errorf("%w: %s", ErrMissingArchive, archivePath)
	}

	arc, err := archive.Open(archivePath, filename)
	if err != nil {
		return archive.Result{}, err
	}
	defer arc.Close()

	return c.validate(arc)
}

func (c *Coordinator) validate(arc archive.Archiver) (archive.Result, error) {
	entries, err := arc.Entries()
	if err != nil {
		return archive.Result{}, err
	}
	return archive.Validate(entries, c.policy)
}

// TargetURI returns the storage URI an archive is extracted below.
func (c *Coordinator) TargetURI(archiveID string) string {
	return c.storage.URI(AssetDir + "/" + archiveID)
}

// Extract validates the archive and extracts it below the archive's target
// directory, then registers every extracted file. Extraction is skipped
// when the target already holds files, so running Extract again only
// refreshes the asset records. A target holding only directories is
// extracted into again.
func (c *Coordinator) Extract(req ExtractRequest) ([]*Asset, error) {
	if !urlbag.IsUUID(req.Archive.ID) {
		return nil, fmt.Errorf("archive id %q is not a UUID", req.Archive.ID)
	}

	exists, err := c.fsmgr.Exists(req.Path)
	if err != nil {
		return nil, fmt.Errorf("checking archive file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMissingArchive, req.Path)
	}

	arc, err := archive.Open(req.Path, req.Archive.Filename)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	result, err := c.validate(arc)
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	targetURI := c.TargetURI(req.Archive.ID)
	targetDir, err := c.storage.LocalPath(targetURI)
	if err != nil {
		return nil, fmt.Errorf("resolving target directory: %w", err)
	}

	extracted, err := c.extracted(targetDir)
	if err != nil {
		return nil, fmt.Errorf("checking target directory: %w", err)
	}
	if !extracted {
		if err := arc.Extract(targetDir); err != nil {
			if rmErr := c.fsmgr.RemoveAll(targetDir); rmErr != nil {
				c.logger.Error("removing partial extraction", "dir", targetDir, "error", rmErr)
			}
			return nil, fmt.Errorf("extracting archive: %w", err)
		}
		c.logger.Info("archive extracted", "archive", req.Archive.ID, "dir", targetDir)
	} else {
		c.logger.Debug("archive already extracted", "archive", req.Archive.ID, "dir", targetDir)
	}

	return c.register(req.Archive, targetURI, targetDir)
}

// extracted reports whether dir holds at least one regular file.
func (c *Coordinator) extracted(dir string) (bool, error) {
	exists, err := c.fsmgr.Exists(dir)
	if err != nil || !exists {
		return false, err
	}
	files, err := c.fsmgr.FindFiles(dir)
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// register upserts one asset per regular file below targetDir.
func (c *Coordinator) register(arc *sqlc.Archive, targetURI, targetDir string) ([]*Asset, error) {
	files, err := c.fsmgr.FindFiles(targetDir)
	if err != nil {
		return nil, fmt.Errorf("finding extracted files: %w", err)
	}

	assets := make([]*Asset, 0, len(files))
	for _, f := range files {
		record, err := c.database.SaveAsset(&sqlc.Asset{
			ArchiveID: arc.ID,
			Source:    targetURI + "/" + f.Rel,
			Filemime:  mimeType(f.Rel),
			Filesize:  f.Size,
		})
		if err != nil {
			return nil, fmt.Errorf("saving asset %s: %w", f.Rel, err)
		}

		asset, err := NewAsset(record, arc, c.rc, c.storage)
		if err != nil {
			return nil, fmt.Errorf("decoding asset %s: %w", record.Source, err)
		}
		assets = append(assets, asset)
	}

	c.logger.Debug("assets registered", "archive", arc.ID, "count", len(assets))
	return assets, nil
}

// DeleteAsset removes an asset's record and file, then every directory the
// removal left empty up to the common asset directory.
func (c *Coordinator) DeleteAsset(asset *Asset) error {
	if err := c.database.DeleteAsset(asset.Record); err != nil {
		return err
	}

	file, err := c.storage.LocalPath(asset.Record.Source)
	if err != nil {
		return fmt.Errorf("resolving asset file: %w", err)
	}
	stopAt, err := c.storage.LocalPath(c.storage.URI(AssetDir))
	if err != nil {
		return fmt.Errorf("resolving asset directory: %w", err)
	}

	if err := c.fsmgr.RemoveFile(file, stopAt); err != nil {
		return fmt.Errorf("removing asset file: %w", err)
	}
	return nil
}
