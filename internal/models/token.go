package models

import "github.com/uptrace/bun"

// TokenAccount is one account's balance in the payment-token ledger.
// Accounts are created lazily on first credit.
type TokenAccount struct {
	bun.BaseModel `bun:"table:token_accounts"`

	ID      string `bun:"id,pk" json:"id"`
	Balance int64  `bun:"balance,notnull" json:"balance"`
}

// TokenAllowance lets Spender move up to Amount of Owner's tokens via
// transferFrom. Spent amounts are deducted.
type TokenAllowance struct {
	bun.BaseModel `bun:"table:token_allowances"`

	Owner   string `bun:"owner,pk" json:"owner"`
	Spender string `bun:"spender,pk" json:"spender"`
	Amount  int64  `bun:"amount,notnull" json:"amount"`
}
