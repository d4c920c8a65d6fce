package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
)

// DB is the secondary market's listing store. Listings are a derived view
// over registry custody: while a row exists here the registry must show the
// escrow account as the ticket's holder.
type DB struct {
	Bun bun.IDB
}

func New(b bun.IDB) *DB {
	return &DB{Bun: b}
}

func (d *DB) CreateListing(ctx context.Context, listing models.Listing) error {
	_, err := d.Bun.NewInsert().Model(&listing).Exec(ctx)
	return err
}

func (d *DB) GetListing(ctx context.Context, collectionID string, ticketID int64) (*models.Listing, error) {
	var listing models.Listing
	err := d.Bun.NewSelect().
		Model(&listing).
		Where("collection_id = ? AND ticket_id = ?", collectionID, ticketID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (d *DB) UpdateBid(ctx context.Context, listing models.Listing) error {
	_, err := d.Bun.NewUpdate().
		Model(&listing).
		Column("highest_bid", "highest_bidder", "highest_bidder_name").
		Where("collection_id = ? AND ticket_id = ?", listing.CollectionID, listing.TicketID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteListing(ctx context.Context, collectionID string, ticketID int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Listing)(nil)).
		Where("collection_id = ? AND ticket_id = ?", collectionID, ticketID).
		Exec(ctx)
	return err
}

func (d *DB) ListingsByCollection(ctx context.Context, collectionID string) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.Bun.NewSelect().
		Model(&listings).
		Where("collection_id = ?", collectionID).
		Order("ticket_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return listings, nil
}
