package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
)

// DB is the payment-token ledger data layer. Bun may be the shared handle or
// a transaction; market operations bind a transaction so fund movement
// commits together with custody changes.
type DB struct {
	Bun bun.IDB
}

func New(b bun.IDB) *DB {
	return &DB{Bun: b}
}

// GetAccount returns nil without error for accounts that were never
// credited; they read as zero balance.
func (d *DB) GetAccount(ctx context.Context, id string) (*models.TokenAccount, error) {
	var account models.TokenAccount
	err := d.Bun.NewSelect().
		Model(&account).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (d *DB) SaveAccount(ctx context.Context, account models.TokenAccount) error {
	_, err := d.Bun.NewInsert().
		Model(&account).
		On("CONFLICT (id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Exec(ctx)
	return err
}

func (d *DB) GetAllowance(ctx context.Context, owner, spender string) (int64, error) {
	var allowance models.TokenAllowance
	err := d.Bun.NewSelect().
		Model(&allowance).
		Where("owner = ? AND spender = ?", owner, spender).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return allowance.Amount, nil
}

func (d *DB) SetAllowance(ctx context.Context, owner, spender string, amount int64) error {
	allowance := models.TokenAllowance{Owner: owner, Spender: spender, Amount: amount}
	_, err := d.Bun.NewInsert().
		Model(&allowance).
		On("CONFLICT (owner, spender) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	return err
}
