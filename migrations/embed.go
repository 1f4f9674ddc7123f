// Package migrations embeds the goose SQL migrations of the editor session
// store. cmd/api applies them at startup; TestMain functions apply them to
// the test database.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
