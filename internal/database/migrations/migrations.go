// Package migrations embeds the schema migrations of the archive and asset
// registry and applies them with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var files embed.FS

// ErrUnversioned is returned for a database no migration has touched yet.
var ErrUnversioned = errors.New("database has no schema version (needs migration)")

// Status is where a database stands against the embedded migrations.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Err describes why the database cannot be used as it is, or returns nil.
func (s Status) Err() error {
	switch {
	case s.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", s.Current)
	case s.Current < s.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)", s.Current, s.Latest, s.Latest-s.Current)
	case s.Current > s.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)", s.Current, s.Latest)
	}
	return nil
}

// ReadStatus compares the database's schema version with the latest
// embedded migration. A database without a version yields ErrUnversioned.
func ReadStatus(db *sql.DB) (Status, error) {
	latest, err := Latest()
	if err != nil {
		return Status{}, err
	}

	// m is not closed: that would close db, which belongs to the caller.
	m, err := newMigrate(db)
	if err != nil {
		return Status{}, err
	}
	current, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{Latest: latest}, ErrUnversioned
	}
	if err != nil {
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}
	return Status{Current: current, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil when db is at the latest schema version.
func Check(db *sql.DB) error {
	status, err := ReadStatus(db)
	if err != nil {
		return err
	}
	return status.Err()
}

// Up applies every pending migration. An up-to-date database is left alone.
func Up(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Latest returns the highest version among the embedded migrations.
func Latest() (uint, error) {
	src, err := openSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("reading first migration: %w", err)
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reading migration after %d: %w", version, err)
		}
		version = next
	}
}

func openSource() (source.Driver, error) {
	src, err := iofs.New(files, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	return src, nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := openSource()
	if err != nil {
		return nil, err
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating sqlite3 migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}
