// Package migrations embeds the SQL migration files discovered by
// storage.Migrator. The schema's DDL itself is owned by the surrounding
// deployment (an external collaborator, per scope) — this package only
// carries the bootstrap migration-tracking tables so `cmd/migrate` has
// something real to run against a fresh database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
