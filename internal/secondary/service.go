package secondary

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/monitoring"
	"ms-marketplace/internal/registry"
	"ms-marketplace/internal/secondary/db"
	"ms-marketplace/internal/token"
)

// ListingLocker serializes mutations per (collection, ticket).
type ListingLocker interface {
	LockListing(collectionID string, ticketID int64, owner string) (bool, error)
	UnlockListing(collectionID string, ticketID int64, owner string) error
}

// Publisher emits secondary-market notifications after commit.
type Publisher interface {
	PublishTicketListed(models.TicketListedEvent) error
	PublishBidSubmitted(models.BidSubmittedEvent) error
	PublishBidAccepted(models.BidAcceptedEvent) error
	PublishTicketDelisted(models.TicketDelistedEvent) error
}

// Service is the secondary market: holders list tickets for open bidding
// with escrowed funds. While listed, the ticket is held by the market's
// escrow account (Account); bidder funds sit in the same account, so at any
// point the escrowed balance attributable to a listing equals its current
// highest bid. FeeRate percent of the winning bid goes to the collection
// creator on acceptance, truncated toward zero.
type Service struct {
	Bun      *bun.DB
	DB       *db.DB
	Registry *registry.Service
	Token    *token.Service
	Locks    ListingLocker
	Kafka    Publisher
	Account  string
	FeeRate  int64
}

func NewService(b *bun.DB, reg *registry.Service, tok *token.Service, locks ListingLocker, kafka Publisher, account string, feeRate int64) *Service {
	return &Service{
		Bun:      b,
		DB:       db.New(b),
		Registry: reg,
		Token:    tok,
		Locks:    locks,
		Kafka:    kafka,
		Account:  account,
		FeeRate:  feeRate,
	}
}

// ListTicket puts a held ticket up for bidding at a reserve price. Custody
// moves to the escrow account, which requires the lister to have approved
// this market as the ticket's delegate first.
func (s *Service) ListTicket(ctx context.Context, lister, collectionID string, ticketID, price int64) error {
	if price < 0 {
		return fmt.Errorf("negative reserve price %d: %w", price, models.ErrInvalidArgument)
	}

	unlock, err := s.lock(collectionID, ticketID, lister)
	if err != nil {
		return err
	}
	defer unlock()

	var listing models.Listing
	err = s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reg := s.Registry.WithTx(tx)

		ticket, err := reg.GetTicket(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if ticket.Holder != lister {
			return fmt.Errorf("%s does not hold ticket %d: %w", lister, ticketID, models.ErrUnauthorized)
		}
		expired, err := reg.IsExpiredOrUsed(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if expired {
			return fmt.Errorf("ticket %d is expired or used: %w", ticketID, models.ErrInvalidState)
		}

		existing, err := db.New(tx).GetListing(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("ticket %d already listed: %w", ticketID, models.ErrInvalidState)
		}

		// Custody moves into escrow. The registry rejects this unless the
		// lister approved the market as delegate.
		if err := reg.Transfer(ctx, s.Account, lister, s.Account, collectionID, ticketID); err != nil {
			return err
		}

		listing = models.Listing{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Lister:       lister,
			ListerName:   ticket.HolderName,
			HighestBid:   price,
			ListedAt:     time.Now(),
		}
		return db.New(tx).CreateListing(ctx, listing)
	})
	if err != nil {
		return err
	}

	monitoring.ListingOpened()
	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketListed(models.TicketListedEvent{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Lister:       lister,
			ReservePrice: price,
		}); err != nil {
			fmt.Printf("Kafka publish error (ticket listed): %v\n", err)
		}
	}
	return nil
}

// SubmitBid escrows a strictly greater bid and refunds the previous highest
// bidder in full. A bid at or below the current highest bid changes nothing
// but is still recorded as a notification.
func (s *Service) SubmitBid(ctx context.Context, bidder, collectionID string, ticketID, amount int64, bidderName string) error {
	if bidder == "" {
		return fmt.Errorf("bid from null account: %w", models.ErrInvalidArgument)
	}

	unlock, err := s.lock(collectionID, ticketID, bidder)
	if err != nil {
		return err
	}
	defer unlock()

	var (
		leading    bool
		prevBid    int64
		prevBidder string
	)
	err = s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		listing, err := db.New(tx).GetListing(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if listing == nil {
			return fmt.Errorf("no active listing for ticket %d: %w", ticketID, models.ErrInvalidState)
		}

		expired, err := s.Registry.WithTx(tx).IsExpiredOrUsed(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if expired {
			return fmt.Errorf("ticket %d is expired or used: %w", ticketID, models.ErrInvalidState)
		}

		// Strictly greater takes the lead; equal bids lose.
		if amount <= listing.HighestBid {
			return nil
		}
		leading = true
		prevBid = listing.HighestBid
		prevBidder = listing.HighestBidder

		tok := s.Token.WithTx(tx)
		if listing.HighestBidder != "" {
			if err := tok.Transfer(ctx, s.Account, listing.HighestBidder, listing.HighestBid); err != nil {
				return fmt.Errorf("failed to refund outbid %s: %w", listing.HighestBidder, err)
			}
		}
		if err := tok.TransferFrom(ctx, s.Account, bidder, s.Account, amount); err != nil {
			return err
		}

		listing.HighestBid = amount
		listing.HighestBidder = bidder
		listing.HighestBidderName = bidderName
		return db.New(tx).UpdateBid(ctx, *listing)
	})
	if err != nil {
		monitoring.RecordBid("failed")
		return err
	}

	if leading {
		monitoring.RecordBid("leading")
		if prevBidder != "" {
			monitoring.AddEscrowHeld(amount - prevBid)
		} else {
			monitoring.AddEscrowHeld(amount)
		}
	} else {
		monitoring.RecordBid("rejected")
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishBidSubmitted(models.BidSubmittedEvent{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Bidder:       bidder,
			BidderName:   bidderName,
			Amount:       amount,
			Accepted:     leading,
		}); err != nil {
			fmt.Printf("Kafka publish error (bid submitted): %v\n", err)
		}
	}
	return nil
}

// GetHighestBid is a pure lookup; absent listings read as zero.
func (s *Service) GetHighestBid(ctx context.Context, collectionID string, ticketID int64) (int64, error) {
	listing, err := s.DB.GetListing(ctx, collectionID, ticketID)
	if err != nil || listing == nil {
		return 0, err
	}
	return listing.HighestBid, nil
}

// GetHighestBidder is a pure lookup; empty means no bidder or no listing.
func (s *Service) GetHighestBidder(ctx context.Context, collectionID string, ticketID int64) (string, error) {
	listing, err := s.DB.GetListing(ctx, collectionID, ticketID)
	if err != nil || listing == nil {
		return "", err
	}
	return listing.HighestBidder, nil
}

func (s *Service) GetListing(ctx context.Context, collectionID string, ticketID int64) (*models.Listing, error) {
	return s.DB.GetListing(ctx, collectionID, ticketID)
}

func (s *Service) ListingsByCollection(ctx context.Context, collectionID string) ([]models.Listing, error) {
	return s.DB.ListingsByCollection(ctx, collectionID)
}

// AcceptBid settles the listing: the winning bid splits into a creator fee
// (FeeRate percent, truncated toward zero) and the lister's payout, both
// paid from escrow, and the ticket goes to the winner carrying the winner's
// submitted name. Fee and payout are computed once so they sum exactly to
// the bid.
func (s *Service) AcceptBid(ctx context.Context, actor, collectionID string, ticketID int64) error {
	unlock, err := s.lock(collectionID, ticketID, actor)
	if err != nil {
		return err
	}
	defer unlock()

	var evt models.BidAcceptedEvent
	err = s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		d := db.New(tx)
		listing, err := d.GetListing(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if listing == nil {
			return fmt.Errorf("no active listing for ticket %d: %w", ticketID, models.ErrInvalidState)
		}
		if actor != listing.Lister {
			return fmt.Errorf("%s did not list ticket %d: %w", actor, ticketID, models.ErrUnauthorized)
		}
		if listing.HighestBidder == "" {
			return fmt.Errorf("no bid on ticket %d: %w", ticketID, models.ErrInvalidState)
		}

		reg := s.Registry.WithTx(tx)
		collection, err := reg.GetCollection(ctx, collectionID)
		if err != nil {
			return err
		}

		fee := listing.HighestBid * s.FeeRate / 100
		payout := listing.HighestBid - fee

		tok := s.Token.WithTx(tx)
		if err := tok.Transfer(ctx, s.Account, listing.Lister, payout); err != nil {
			return fmt.Errorf("failed to pay lister: %w", err)
		}
		if err := tok.Transfer(ctx, s.Account, collection.Creator, fee); err != nil {
			return fmt.Errorf("failed to pay creator fee: %w", err)
		}

		if err := reg.UpdateHolderName(ctx, s.Account, collectionID, ticketID, listing.HighestBidderName); err != nil {
			return err
		}
		if err := reg.Transfer(ctx, s.Account, s.Account, listing.HighestBidder, collectionID, ticketID); err != nil {
			return err
		}
		if err := d.DeleteListing(ctx, collectionID, ticketID); err != nil {
			return err
		}

		evt = models.BidAcceptedEvent{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Lister:       listing.Lister,
			Winner:       listing.HighestBidder,
			Price:        listing.HighestBid,
			Fee:          fee,
			Payout:       payout,
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.RecordSettlement("accepted")
	monitoring.AddEscrowHeld(-evt.Price)
	monitoring.ListingClosed()
	if s.Kafka != nil {
		if err := s.Kafka.PublishBidAccepted(evt); err != nil {
			fmt.Printf("Kafka publish error (bid accepted): %v\n", err)
		}
	}
	return nil
}

// DelistTicket takes the listing down: any escrowed bid is refunded in full,
// the holder name snapshot from listing time is restored, and custody
// returns to the lister.
func (s *Service) DelistTicket(ctx context.Context, actor, collectionID string, ticketID int64) error {
	unlock, err := s.lock(collectionID, ticketID, actor)
	if err != nil {
		return err
	}
	defer unlock()

	var evt models.TicketDelistedEvent
	err = s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		d := db.New(tx)
		listing, err := d.GetListing(ctx, collectionID, ticketID)
		if err != nil {
			return err
		}
		if listing == nil {
			return fmt.Errorf("no active listing for ticket %d: %w", ticketID, models.ErrInvalidState)
		}
		if actor != listing.Lister {
			return fmt.Errorf("%s did not list ticket %d: %w", actor, ticketID, models.ErrUnauthorized)
		}

		evt = models.TicketDelistedEvent{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Lister:       listing.Lister,
		}

		if listing.HighestBidder != "" {
			if err := s.Token.WithTx(tx).Transfer(ctx, s.Account, listing.HighestBidder, listing.HighestBid); err != nil {
				return fmt.Errorf("failed to refund %s: %w", listing.HighestBidder, err)
			}
			evt.RefundedBidder = listing.HighestBidder
			evt.RefundedAmount = listing.HighestBid
		}

		reg := s.Registry.WithTx(tx)
		if err := reg.UpdateHolderName(ctx, s.Account, collectionID, ticketID, listing.ListerName); err != nil {
			return err
		}
		if err := reg.Transfer(ctx, s.Account, s.Account, listing.Lister, collectionID, ticketID); err != nil {
			return err
		}
		return d.DeleteListing(ctx, collectionID, ticketID)
	})
	if err != nil {
		return err
	}

	monitoring.RecordSettlement("delisted")
	monitoring.AddEscrowHeld(-evt.RefundedAmount)
	monitoring.ListingClosed()
	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketDelisted(evt); err != nil {
			fmt.Printf("Kafka publish error (ticket delisted): %v\n", err)
		}
	}
	return nil
}

func (s *Service) lock(collectionID string, ticketID int64, owner string) (func(), error) {
	if s.Locks == nil {
		return func() {}, nil
	}
	ok, err := s.Locks.LockListing(collectionID, ticketID, owner)
	if err != nil {
		return nil, fmt.Errorf("listing lock error: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("ticket %d is being settled: %w", ticketID, models.ErrInvalidState)
	}
	return func() {
		if err := s.Locks.UnlockListing(collectionID, ticketID, owner); err != nil {
			fmt.Printf("Failed to release listing lock: %v\n", err)
		}
	}, nil
}
