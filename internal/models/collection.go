package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Collection is one event's ticket collection. The creator receives primary
// sale proceeds and resale fees, and is the only account allowed to mark
// tickets used. MintAuthority is the primary-market account that created the
// collection; only it may mint.
type Collection struct {
	bun.BaseModel `bun:"table:collections"`

	ID            string    `bun:"id,pk" json:"id"`
	EventName     string    `bun:"event_name,notnull" json:"event_name"`
	Creator       string    `bun:"creator,notnull" json:"creator"`
	MaxSupply     int64     `bun:"max_supply,notnull" json:"max_supply"`
	MintedCount   int64     `bun:"minted_count,notnull" json:"minted_count"`
	MintAuthority string    `bun:"mint_authority,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// CollectionPrice is the primary market's fixed unit price for a collection,
// set once at creation and immutable afterwards.
type CollectionPrice struct {
	bun.BaseModel `bun:"table:collection_prices"`

	CollectionID string `bun:"collection_id,pk" json:"collection_id"`
	Price        int64  `bun:"price,notnull" json:"price"`
}
