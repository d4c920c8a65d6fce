package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/monitoring"
	"ms-marketplace/internal/registry/db"
)

// Publisher emits registry notifications after an operation has committed.
type Publisher interface {
	PublishTicketMinted(models.TicketMintedEvent) error
	PublishTicketTransferred(models.TicketTransferredEvent) error
	PublishTicketApproved(models.TicketApprovedEvent) error
}

// Service owns per-ticket state and enforces transfer, approval and usage
// rules. Every mutating call takes the acting account explicitly; there is
// no ambient caller identity.
type Service struct {
	Bun            bun.IDB
	DB             *db.DB
	Kafka          Publisher
	ValidityWindow time.Duration
}

func NewService(b bun.IDB, kafka Publisher, validityWindow time.Duration) *Service {
	return &Service{Bun: b, DB: db.New(b), Kafka: kafka, ValidityWindow: validityWindow}
}

// WithTx rebinds the service to a running transaction. The rebound service
// does not publish; the enclosing operation owns notification on commit.
func (s *Service) WithTx(tx bun.Tx) *Service {
	return &Service{Bun: tx, DB: db.New(tx), ValidityWindow: s.ValidityWindow}
}

// CreateCollection initializes a collection with zero minted tickets. Only
// mintAuthority may mint on it later.
func (s *Service) CreateCollection(ctx context.Context, eventName string, maxSupply int64, creator, mintAuthority string) (*models.Collection, error) {
	if creator == "" || mintAuthority == "" {
		return nil, fmt.Errorf("collection with null account: %w", models.ErrInvalidArgument)
	}
	if maxSupply <= 0 {
		return nil, fmt.Errorf("max supply %d: %w", maxSupply, models.ErrInvalidArgument)
	}

	collection := models.Collection{
		ID:            uuid.New().String(),
		EventName:     eventName,
		Creator:       creator,
		MaxSupply:     maxSupply,
		MintedCount:   0,
		MintAuthority: mintAuthority,
		CreatedAt:     time.Now(),
	}
	if err := s.DB.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &collection, nil
}

func (s *Service) GetCollection(ctx context.Context, collectionID string) (*models.Collection, error) {
	collection, err := s.DB.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, fmt.Errorf("collection %s: %w", collectionID, models.ErrNotFound)
	}
	return collection, nil
}

// Mint allocates the next dense ticket id for the collection. Fails unless
// actor is the collection's mint authority, and once supply is exhausted.
func (s *Service) Mint(ctx context.Context, actor, collectionID, holder, holderName string) (*models.Ticket, error) {
	var minted models.Ticket
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		d := db.New(tx)

		collection, err := d.GetCollection(ctx, collectionID)
		if err != nil {
			return err
		}
		if collection == nil {
			return fmt.Errorf("collection %s: %w", collectionID, models.ErrNotFound)
		}
		if actor != collection.MintAuthority {
			return fmt.Errorf("%s is not the mint authority of %s: %w", actor, collectionID, models.ErrUnauthorized)
		}
		if collection.MintedCount >= collection.MaxSupply {
			return fmt.Errorf("collection %s minted %d of %d: %w",
				collectionID, collection.MintedCount, collection.MaxSupply, models.ErrSupplyExhausted)
		}
		if holder == "" {
			return fmt.Errorf("mint to null account: %w", models.ErrInvalidArgument)
		}

		now := time.Now()
		minted = models.Ticket{
			CollectionID: collectionID,
			TicketID:     collection.MintedCount,
			Holder:       holder,
			HolderName:   holderName,
			Used:         false,
			Approved:     "",
			IssuedAt:     now,
			ExpiresAt:    now.Add(s.ValidityWindow),
		}
		if err := d.InsertTicket(ctx, minted); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
		return d.SetMintedCount(ctx, collectionID, collection.MintedCount+1)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordMint(collectionID)
	s.publishMinted(minted)
	return &minted, nil
}

func (s *Service) BalanceOf(ctx context.Context, account string) (int, error) {
	return s.DB.CountByHolder(ctx, account)
}

func (s *Service) TicketsOf(ctx context.Context, account string) ([]models.Ticket, error) {
	return s.DB.TicketsByHolder(ctx, account)
}

func (s *Service) HolderOf(ctx context.Context, collectionID string, ticketID int64) (string, error) {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return "", err
	}
	return ticket.Holder, nil
}

func (s *Service) GetTicket(ctx context.Context, collectionID string, ticketID int64) (*models.Ticket, error) {
	return s.getTicket(ctx, collectionID, ticketID)
}

// Transfer moves custody of a ticket. Actor must be the current holder or
// the approved delegate, and from must match the current holder. Approval is
// cleared on every transfer.
func (s *Service) Transfer(ctx context.Context, actor, from, to, collectionID string, ticketID int64) error {
	if from == "" || to == "" {
		return fmt.Errorf("transfer with null account: %w", models.ErrInvalidArgument)
	}

	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return err
	}
	if actor != ticket.Holder && (ticket.Approved == "" || actor != ticket.Approved) {
		return fmt.Errorf("%s is neither holder nor delegate of ticket %d: %w", actor, ticketID, models.ErrUnauthorized)
	}
	if from != ticket.Holder {
		return fmt.Errorf("%s does not hold ticket %d: %w", from, ticketID, models.ErrUnauthorized)
	}

	ticket.Holder = to
	ticket.Approved = ""
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("failed to transfer ticket: %w", err)
	}

	s.publishTransferred(collectionID, ticketID, from, to)
	return nil
}

// Approve sets the ticket's single transfer delegate. Re-approving replaces
// the delegate; approving the empty account clears it.
func (s *Service) Approve(ctx context.Context, actor, delegate, collectionID string, ticketID int64) error {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return err
	}
	if actor != ticket.Holder {
		return fmt.Errorf("%s does not hold ticket %d: %w", actor, ticketID, models.ErrUnauthorized)
	}

	ticket.Approved = delegate
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("failed to approve delegate: %w", err)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketApproved(models.TicketApprovedEvent{
			CollectionID: collectionID,
			TicketID:     ticketID,
			Holder:       ticket.Holder,
			Approved:     delegate,
		}); err != nil {
			fmt.Printf("Kafka publish error (ticket approved): %v\n", err)
		}
	}
	return nil
}

func (s *Service) GetApproved(ctx context.Context, collectionID string, ticketID int64) (string, error) {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return "", err
	}
	return ticket.Approved, nil
}

// UpdateHolderName changes the display name on a ticket without affecting
// custody.
func (s *Service) UpdateHolderName(ctx context.Context, actor, collectionID string, ticketID int64, newName string) error {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return err
	}
	if actor != ticket.Holder {
		return fmt.Errorf("%s does not hold ticket %d: %w", actor, ticketID, models.ErrUnauthorized)
	}

	ticket.HolderName = newName
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("failed to update holder name: %w", err)
	}
	return nil
}

// SetUsed marks a ticket used at the gate. Only the collection creator may
// do this, and only once, before expiry.
func (s *Service) SetUsed(ctx context.Context, actor, collectionID string, ticketID int64) error {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return err
	}
	if ticket.Used {
		return fmt.Errorf("ticket %d already used: %w", ticketID, models.ErrInvalidState)
	}
	if time.Now().After(ticket.ExpiresAt) {
		return fmt.Errorf("ticket %d expired at %s: %w", ticketID, ticket.ExpiresAt.Format(time.RFC3339), models.ErrInvalidState)
	}

	collection, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if actor != collection.Creator {
		return fmt.Errorf("%s is not the creator of %s: %w", actor, collectionID, models.ErrUnauthorized)
	}

	ticket.Used = true
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("failed to mark ticket used: %w", err)
	}
	return nil
}

// IsExpiredOrUsed reports whether the ticket can no longer be redeemed or
// traded.
func (s *Service) IsExpiredOrUsed(ctx context.Context, collectionID string, ticketID int64) (bool, error) {
	ticket, err := s.getTicket(ctx, collectionID, ticketID)
	if err != nil {
		return false, err
	}
	return ticket.ExpiredOrUsed(time.Now()), nil
}

func (s *Service) getTicket(ctx context.Context, collectionID string, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicket(ctx, collectionID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %d in collection %s: %w", ticketID, collectionID, models.ErrNotFound)
	}
	return ticket, nil
}

func (s *Service) publishMinted(ticket models.Ticket) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishTicketMinted(models.TicketMintedEvent{
		CollectionID: ticket.CollectionID,
		TicketID:     ticket.TicketID,
		Holder:       ticket.Holder,
		HolderName:   ticket.HolderName,
		ExpiresAt:    ticket.ExpiresAt,
	}); err != nil {
		fmt.Printf("Kafka publish error (ticket minted): %v\n", err)
	}
	// Ownership-transfer notification from no one to the first holder.
	s.publishTransferred(ticket.CollectionID, ticket.TicketID, "", ticket.Holder)
}

func (s *Service) publishTransferred(collectionID string, ticketID int64, from, to string) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishTicketTransferred(models.TicketTransferredEvent{
		CollectionID: collectionID,
		TicketID:     ticketID,
		From:         from,
		To:           to,
	}); err != nil {
		fmt.Printf("Kafka publish error (ticket transferred): %v\n", err)
	}
	// Every transfer clears the delegate; observers see that too.
	if err := s.Kafka.PublishTicketApproved(models.TicketApprovedEvent{
		CollectionID: collectionID,
		TicketID:     ticketID,
		Holder:       to,
		Approved:     "",
	}); err != nil {
		fmt.Printf("Kafka publish error (approval cleared): %v\n", err)
	}
}
