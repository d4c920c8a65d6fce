package models

import "time"

// Kafka notification payloads. Each is published exactly when the triggering
// operation has committed; publishing is fire and forget.

type CollectionCreatedEvent struct {
	CollectionID string    `json:"collection_id"`
	EventName    string    `json:"event_name"`
	Creator      string    `json:"creator"`
	MaxSupply    int64     `json:"max_supply"`
	Price        int64     `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

type TicketMintedEvent struct {
	CollectionID string    `json:"collection_id"`
	TicketID     int64     `json:"ticket_id"`
	Holder       string    `json:"holder"`
	HolderName   string    `json:"holder_name"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type TicketTransferredEvent struct {
	CollectionID string `json:"collection_id"`
	TicketID     int64  `json:"ticket_id"`
	From         string `json:"from"`
	To           string `json:"to"`
}

type TicketApprovedEvent struct {
	CollectionID string `json:"collection_id"`
	TicketID     int64  `json:"ticket_id"`
	Holder       string `json:"holder"`
	Approved     string `json:"approved"`
}

type TicketListedEvent struct {
	CollectionID string `json:"collection_id"`
	TicketID     int64  `json:"ticket_id"`
	Lister       string `json:"lister"`
	ReservePrice int64  `json:"reserve_price"`
}

// BidSubmittedEvent is emitted for every submitBid call, including bids at
// or below the current highest bid; Accepted records whether the bid
// actually took the lead.
type BidSubmittedEvent struct {
	CollectionID string `json:"collection_id"`
	TicketID     int64  `json:"ticket_id"`
	Bidder       string `json:"bidder"`
	BidderName   string `json:"bidder_name"`
	Amount       int64  `json:"amount"`
	Accepted     bool   `json:"accepted"`
}

type BidAcceptedEvent struct {
	CollectionID string `json:"collection_id"`
	TicketID     int64  `json:"ticket_id"`
	Lister       string `json:"lister"`
	Winner       string `json:"winner"`
	Price        int64  `json:"price"`
	Fee          int64  `json:"fee"`
	Payout       int64  `json:"payout"`
}

type TicketDelistedEvent struct {
	CollectionID   string `json:"collection_id"`
	TicketID       int64  `json:"ticket_id"`
	Lister         string `json:"lister"`
	RefundedBidder string `json:"refunded_bidder,omitempty"`
	RefundedAmount int64  `json:"refunded_amount,omitempty"`
}
