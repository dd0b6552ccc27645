// Package migrations holds the numbered schema files for documents, chunks,
// query history and sync state. Store.migrate applies the .up.sql files in order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
