// Package migrations embeds the goose migrations of the user configuration database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
