// Package migrations embeds the schema files so the migrate binary is
// self-contained and does not depend on its working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
