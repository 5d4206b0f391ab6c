package database

import "embed"

// MigrationFS embeds the SQL migration files from internal/database/migrations.
// The migrate runner (cmd/migrate) applies them against the configured database.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
