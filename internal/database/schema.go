package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/models"
)

// Open connects to the SQLite database at dsn and returns a bun handle.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := sqldb.Ping(); err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates all marketplace tables if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []any{
		(*models.Collection)(nil),
		(*models.CollectionPrice)(nil),
		(*models.Ticket)(nil),
		(*models.Listing)(nil),
		(*models.TokenAccount)(nil),
		(*models.TokenAllowance)(nil),
	}
	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
