// Package migrations embeds the SQL schema migrations for use with
// golang-migrate's iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
