package db

import "embed"

// MigrationFS holds the schema migrations compiled into the binary, so
// cmd/migrate needs no filesystem layout at deploy time.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
