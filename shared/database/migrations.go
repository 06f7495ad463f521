package database

import "embed"

// MigrationsFS carries the schema migrations so the binary can apply them on
// startup without shipping .sql files alongside it.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
