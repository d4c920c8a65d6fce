package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is one minted ticket. Ids are dense and monotonically assigned per
// collection starting at 0, never reused. Approved holds at most one
// delegate account and is cleared on every transfer; the empty string means
// no delegate. Used is a one-way transition.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	CollectionID string    `bun:"collection_id,pk" json:"collection_id"`
	TicketID     int64     `bun:"ticket_id,pk" json:"ticket_id"`
	Holder       string    `bun:"holder,notnull" json:"holder"`
	HolderName   string    `bun:"holder_name" json:"holder_name"`
	Used         bool      `bun:"used,notnull" json:"used"`
	Approved     string    `bun:"approved" json:"approved,omitempty"`
	IssuedAt     time.Time `bun:"issued_at,notnull" json:"issued_at"`
	ExpiresAt    time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// ExpiredOrUsed reports whether the ticket can no longer be redeemed.
// Expiry is evaluated at read time; there is no background sweep.
func (t *Ticket) ExpiredOrUsed(now time.Time) bool {
	return t.Used || now.After(t.ExpiresAt)
}
