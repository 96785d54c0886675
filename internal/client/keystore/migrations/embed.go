// Package migrations embeds the local keystore's goose migration files.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
