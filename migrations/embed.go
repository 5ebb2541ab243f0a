// Package migrations embeds the Postgres schema for the dataset source.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
