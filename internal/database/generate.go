package database

// sqlc/schema.sql is derived from the migrations and feeds both sqlc and the
// test databases (see Schema). Regenerate it, then the queries, with:
//
//	go generate ./internal/database

//go:generate go run ./tools/generate_schema.go -out sqlc/schema.sql
//go:generate sqlc generate -f sqlc/sqlc.yaml
