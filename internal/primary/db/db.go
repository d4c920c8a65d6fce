package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
)

// DB holds the primary market's fixed price per collection.
type DB struct {
	Bun bun.IDB
}

func New(b bun.IDB) *DB {
	return &DB{Bun: b}
}

func (d *DB) SetPrice(ctx context.Context, collectionID string, price int64) error {
	entry := models.CollectionPrice{CollectionID: collectionID, Price: price}
	_, err := d.Bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

// GetPrice returns (0, false) for collections this market never priced.
func (d *DB) GetPrice(ctx context.Context, collectionID string) (int64, bool, error) {
	var entry models.CollectionPrice
	err := d.Bun.NewSelect().
		Model(&entry).
		Where("collection_id = ?", collectionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return entry.Price, true, nil
}
