// Package migrations holds the schema of the conversation, exam session and
// note tables, applied in order by golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
