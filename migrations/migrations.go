// Package migrations embeds the SQL schema for the postgres data-store mode.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
