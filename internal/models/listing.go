package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Listing is an active secondary-market sale for one ticket. While a listing
// exists the registry must show the market's escrow account as the ticket's
// holder. HighestBid starts at the lister's reserve price and only ever
// increases; HighestBidder empty means no bid yet. ListerName snapshots the
// holder name at listing time so delisting can restore it.
type Listing struct {
	bun.BaseModel `bun:"table:listings"`

	CollectionID      string    `bun:"collection_id,pk" json:"collection_id"`
	TicketID          int64     `bun:"ticket_id,pk" json:"ticket_id"`
	Lister            string    `bun:"lister,notnull" json:"lister"`
	ListerName        string    `bun:"lister_name" json:"lister_name"`
	HighestBid        int64     `bun:"highest_bid,notnull" json:"highest_bid"`
	HighestBidder     string    `bun:"highest_bidder" json:"highest_bidder,omitempty"`
	HighestBidderName string    `bun:"highest_bidder_name" json:"highest_bidder_name,omitempty"`
	ListedAt          time.Time `bun:"listed_at,notnull" json:"listed_at"`
}
