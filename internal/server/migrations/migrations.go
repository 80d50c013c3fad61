// Package migrations embeds the registry's SQL schema migrations so they can
// be applied by goose at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
