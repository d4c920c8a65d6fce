package primary

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/monitoring"
	"ms-marketplace/internal/primary/db"
	"ms-marketplace/internal/registry"
	"ms-marketplace/internal/token"
)

// Publisher emits primary-market notifications after commit.
type Publisher interface {
	PublishCollectionCreated(models.CollectionCreatedEvent) error
	PublishTicketMinted(models.TicketMintedEvent) error
	PublishTicketTransferred(models.TicketTransferredEvent) error
}

// Service is the primary market: it creates one registry collection per
// event and sells tickets at the collection's fixed price, paying proceeds
// to the creator. Account is the market's own identity; the registry only
// lets it mint on collections it created.
type Service struct {
	Bun      *bun.DB
	DB       *db.DB
	Registry *registry.Service
	Token    *token.Service
	Kafka    Publisher
	Account  string
}

func NewService(b *bun.DB, reg *registry.Service, tok *token.Service, kafka Publisher, account string) *Service {
	return &Service{
		Bun:      b,
		DB:       db.New(b),
		Registry: reg,
		Token:    tok,
		Kafka:    kafka,
		Account:  account,
	}
}

// CreateEvent creates a new ticket collection with the caller as creator and
// records its fixed price. The price is immutable once set.
func (s *Service) CreateEvent(ctx context.Context, creator, eventName string, price, maxSupply int64) (*models.Collection, error) {
	if price < 0 {
		return nil, fmt.Errorf("negative price %d: %w", price, models.ErrInvalidArgument)
	}

	var collection *models.Collection
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		collection, err = s.Registry.WithTx(tx).CreateCollection(ctx, eventName, maxSupply, creator, s.Account)
		if err != nil {
			return err
		}
		return db.New(tx).SetPrice(ctx, collection.ID, price)
	})
	if err != nil {
		return nil, err
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishCollectionCreated(models.CollectionCreatedEvent{
			CollectionID: collection.ID,
			EventName:    collection.EventName,
			Creator:      collection.Creator,
			MaxSupply:    collection.MaxSupply,
			Price:        price,
			CreatedAt:    collection.CreatedAt,
		}); err != nil {
			fmt.Printf("Kafka publish error (collection created): %v\n", err)
		}
	}
	return collection, nil
}

// Purchase sells one ticket to buyer: it moves the fixed price from buyer to
// the collection's creator, then mints. Payment and mint commit together; a
// failed payment never mints and a failed mint refunds by rollback. Token
// failures propagate unmasked.
func (s *Service) Purchase(ctx context.Context, buyer, collectionID, holderName string) (*models.Ticket, error) {
	var minted models.Ticket
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		price, ok, err := db.New(tx).GetPrice(ctx, collectionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("collection %s has no price entry: %w", collectionID, models.ErrNotFound)
		}

		reg := s.Registry.WithTx(tx)
		collection, err := reg.GetCollection(ctx, collectionID)
		if err != nil {
			return err
		}

		// Payment first: the buyer pre-approves this market to spend the
		// price, and the creator is paid before the mint is attempted.
		if err := s.Token.WithTx(tx).TransferFrom(ctx, s.Account, buyer, collection.Creator, price); err != nil {
			return err
		}

		ticket, err := reg.Mint(ctx, s.Account, collectionID, buyer, holderName)
		if err != nil {
			return err
		}
		minted = *ticket
		return nil
	})
	if err != nil {
		monitoring.RecordPurchase(collectionID, "failed")
		return nil, err
	}

	monitoring.RecordPurchase(collectionID, "completed")
	s.publishMinted(minted)
	return &minted, nil
}

// GetPrice is a pure lookup; unknown collections read as zero.
func (s *Service) GetPrice(ctx context.Context, collectionID string) (int64, error) {
	price, _, err := s.DB.GetPrice(ctx, collectionID)
	return price, err
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
	if err := s.Kafka.PublishTicketTransferred(models.TicketTransferredEvent{
		CollectionID: ticket.CollectionID,
		TicketID:     ticket.TicketID,
		From:         "",
		To:           ticket.Holder,
	}); err != nil {
		fmt.Printf("Kafka publish error (ticket transferred): %v\n", err)
	}
}
