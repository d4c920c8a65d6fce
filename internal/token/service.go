package token

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/token/db"
)

// Service is the fungible payment-token ledger: a standard
// mint/transfer/approve token the markets settle against. Mint exists for
// bootstrap and tests only.
type Service struct {
	Bun bun.IDB
	DB  *db.DB
}

func NewService(b bun.IDB) *Service {
	return &Service{Bun: b, DB: db.New(b)}
}

// WithTx rebinds the service to a running transaction so callers can couple
// fund movement with their own state changes.
func (s *Service) WithTx(tx bun.Tx) *Service {
	return &Service{Bun: tx, DB: db.New(tx)}
}

func (s *Service) BalanceOf(ctx context.Context, account string) (int64, error) {
	acc, err := s.DB.GetAccount(ctx, account)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Balance, nil
}

func (s *Service) Allowance(ctx context.Context, owner, spender string) (int64, error) {
	return s.DB.GetAllowance(ctx, owner, spender)
}

func (s *Service) Mint(ctx context.Context, to string, amount int64) error {
	if to == "" {
		return fmt.Errorf("mint to null account: %w", models.ErrInvalidArgument)
	}
	if amount < 0 {
		return fmt.Errorf("negative mint amount %d: %w", amount, models.ErrInvalidArgument)
	}
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return credit(ctx, db.New(tx), to, amount)
	})
}

func (s *Service) Approve(ctx context.Context, owner, spender string, amount int64) error {
	if owner == "" || spender == "" {
		return fmt.Errorf("approve with null account: %w", models.ErrInvalidArgument)
	}
	if amount < 0 {
		return fmt.Errorf("negative allowance %d: %w", amount, models.ErrInvalidArgument)
	}
	return s.DB.SetAllowance(ctx, owner, spender, amount)
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientBalance when the sender cannot cover it.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64) error {
	if from == "" || to == "" {
		return fmt.Errorf("transfer with null account: %w", models.ErrInvalidArgument)
	}
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d: %w", amount, models.ErrInvalidArgument)
	}
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return move(ctx, db.New(tx), from, to, amount)
	})
}

// TransferFrom moves amount from `from` to `to` on behalf of spender,
// consuming spender's allowance.
func (s *Service) TransferFrom(ctx context.Context, spender, from, to string, amount int64) error {
	if spender == "" || from == "" || to == "" {
		return fmt.Errorf("transferFrom with null account: %w", models.ErrInvalidArgument)
	}
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d: %w", amount, models.ErrInvalidArgument)
	}
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		d := db.New(tx)

		allowance, err := d.GetAllowance(ctx, from, spender)
		if err != nil {
			return err
		}
		if allowance < amount {
			return fmt.Errorf("allowance %d < %d for %s spending from %s: %w",
				allowance, amount, spender, from, models.ErrInsufficientAllowance)
		}
		if err := move(ctx, d, from, to, amount); err != nil {
			return err
		}
		return d.SetAllowance(ctx, from, spender, allowance-amount)
	})
}

func move(ctx context.Context, d *db.DB, from, to string, amount int64) error {
	sender, err := d.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	balance := int64(0)
	if sender != nil {
		balance = sender.Balance
	}
	if balance < amount {
		return fmt.Errorf("balance %d < %d for %s: %w",
			balance, amount, from, models.ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	if err := d.SaveAccount(ctx, models.TokenAccount{ID: from, Balance: balance - amount}); err != nil {
		return err
	}
	return credit(ctx, d, to, amount)
}

func credit(ctx context.Context, d *db.DB, to string, amount int64) error {
	recipient, err := d.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	balance := int64(0)
	if recipient != nil {
		balance = recipient.Balance
	}
	return d.SaveAccount(ctx, models.TokenAccount{ID: to, Balance: balance + amount})
}
