// Package migrations embeds the post history schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
