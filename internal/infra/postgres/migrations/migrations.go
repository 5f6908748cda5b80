package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Migrations holds every schema change, registered by the versioned files in
// this package.
var Migrations = migrate.NewMigrations()

func mustReadSQL(name string) string {
	raw, err := sqlFiles.ReadFile("sql/" + name)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
