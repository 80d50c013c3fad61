// Package migrations embeds the SQL migrations for the local issuance index.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
