package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
)

// DB is the ticket registry data layer: collections and their tickets. It is
// the sole source of truth for ticket custody.
type DB struct {
	Bun bun.IDB
}

func New(b bun.IDB) *DB {
	return &DB{Bun: b}
}

func (d *DB) CreateCollection(ctx context.Context, collection models.Collection) error {
	_, err := d.Bun.NewInsert().Model(&collection).Exec(ctx)
	return err
}

func (d *DB) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var collection models.Collection
	err := d.Bun.NewSelect().
		Model(&collection).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (d *DB) SetMintedCount(ctx context.Context, collectionID string, count int64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Collection)(nil)).
		Set("minted_count = ?", count).
		Where("id = ?", collectionID).
		Exec(ctx)
	return err
}

func (d *DB) InsertTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

func (d *DB) GetTicket(ctx context.Context, collectionID string, ticketID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("collection_id = ? AND ticket_id = ?", collectionID, ticketID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicket writes the mutable ticket fields; id, issue and expiry times
// are immutable after mint.
func (d *DB) UpdateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("holder", "holder_name", "used", "approved").
		Where("collection_id = ? AND ticket_id = ?", ticket.CollectionID, ticket.TicketID).
		Exec(ctx)
	return err
}

func (d *DB) CountByHolder(ctx context.Context, holder string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("holder = ?", holder).
		Count(ctx)
}

func (d *DB) TicketsByHolder(ctx context.Context, holder string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("holder = ?", holder).
		Order("collection_id", "ticket_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
