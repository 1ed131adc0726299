// Command generate_schema migrates an in-memory database to the latest
// version and writes the resulting schema for sqlc.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"minisite-go/internal/database"
	"minisite-go/internal/database/migrations"
)

func main() {
	out := flag.String("out", "sqlc/schema.sql", "schema file to write")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}
	version, err := migrations.Latest()
	if err != nil {
		return err
	}

	statements, err := schemaStatements(db)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated from internal/database/migrations/files at version %d. DO NOT EDIT.\n", version)
	fmt.Fprintf(&b, "-- Regenerate with: go generate ./internal/database\n\n")
	for _, stmt := range statements {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}

	if err := os.WriteFile(out, []byte(b.String()), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d statements, schema version %d)\n", out, len(statements), version)
	return nil
}

// schemaStatements returns the CREATE statements of the registry tables,
// tables first, leaving out sqlite internals and golang-migrate's own table.
func schemaStatements(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT sql FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY type = 'index', tbl_name, name`)
	if err != nil {
		return nil, fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var statements []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, rows.Err()
}
