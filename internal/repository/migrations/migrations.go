// Package migrations embeds the ledger schema for each SQL backend.
package migrations

import "embed"

// PostgresFS holds the PostgreSQL migrations under "postgres"
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// SQLiteFS holds the SQLite migrations under "sqlite"
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS
