package app

import (
	"fmt"
	"os"
	"path/filepath"

	"minisite-go/internal/config"
	"minisite-go/internal/database"
	"minisite-go/internal/vault"
)

// MigrateDatabase brings the configured database to the latest schema.
func MigrateDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.SiteID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// PullDatabase replaces the local sqlite database with the latest snapshot
// stored in the vault. Returns the snapshot version.
func PullDatabase(cfg *config.Config) (int64, error) {
	if cfg.Database.Type != "sqlite" {
		return 0, fmt.Errorf("pulling requires a sqlite database, got %q", cfg.Database.Type)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}

	version, err := v.GetMetadataVersion(cfg.SiteID, MetadataName)
	if err != nil {
		return 0, fmt.Errorf("checking remote metadata version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("no database snapshot stored for site %s", cfg.SiteID)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(cfg.Database.DataDir, cfg.SiteID+".db")

	tmp, err := os.CreateTemp(cfg.Database.DataDir, ".pull-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := v.GetMetadata(cfg.SiteID, MetadataName, tmp); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("downloading database snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing database snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, dbPath); err != nil {
		return 0, fmt.Errorf("replacing database: %w", err)
	}
	return version, nil
}
