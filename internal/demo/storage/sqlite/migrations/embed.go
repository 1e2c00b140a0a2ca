// Package migrations embeds the demo store's SQL migration files.
package migrations

import "embed"

// FS holds the .sql files applied at store open.
//
//go:embed *.sql
var FS embed.FS
