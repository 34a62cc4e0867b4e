package database

import (
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded goose migrations against the connected database.
func Migrate(db *sqlx.DB, fsys fs.FS) error {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
