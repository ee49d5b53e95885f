// Package migrations embeds the SQL schema migrations for the wishlist API.
package migrations

import "embed"

// FS holds the migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
