// Package migrations embeds the storefront's SQL schema migrations.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
