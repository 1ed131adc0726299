package database

import (
	"fmt"
	"os"
	"path/filepath"

	"minisite-go/internal/config"
	"minisite-go/internal/minisite"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, siteID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, siteID+".db")
		return NewSQLiteDatabase(dbPath, minisite.RealClock{}, minisite.UUIDGenerator{})
	case "memory":
		return NewSQLiteDatabase(":memory:", minisite.RealClock{}, minisite.UUIDGenerator{})
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
