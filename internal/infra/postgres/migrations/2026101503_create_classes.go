package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	createClassesSQL := mustReadSQL("create_classes.sql")
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createClassesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS class_students; DROP TABLE IF EXISTS classes`)
			return err
		},
	)
}
