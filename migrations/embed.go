// Package migrations embeds the SQL schema so the binary is self-contained.
package migrations

import "embed"

// FS holds one directory of *.sql files per database dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
