package migrations

import "embed"

// FS contains the embedded run catalog schema.
//
//go:embed *.sql
var FS embed.FS
