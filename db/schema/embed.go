// Package schema holds the database migrations applied at startup.
package schema

import "embed"

// FS contains the NNN_description.{up,down}.sql migration files.
//
//go:embed *.sql
var FS embed.FS
