package migrations

import "embed"

// FS - встроенные SQL-миграции PostgreSQL
//
//go:embed *.sql
var FS embed.FS
