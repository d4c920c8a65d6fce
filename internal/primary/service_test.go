package primary_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/database"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/primary"
	"ms-marketplace/internal/registry"
	"ms-marketplace/internal/token"
)

const marketAccount = "market:primary"

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCollectionCreated(evt models.CollectionCreatedEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishTicketMinted(evt models.TicketMintedEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishTicketTransferred(evt models.TicketTransferredEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

func setupMarket(t *testing.T) (*primary.Service, *token.Service, *registry.Service) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := database.CreateSchema(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { bunDB.Close() })

	reg := registry.NewService(bunDB, nil, 240*time.Hour)
	tok := token.NewService(bunDB)
	svc := primary.NewService(bunDB, reg, tok, nil, marketAccount)
	return svc, tok, reg
}

func TestCreateEvent(t *testing.T) {
	svc, _, reg := setupMarket(t)
	ctx := context.Background()

	collection, err := svc.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 100)
	require.NoError(t, err)
	assert.Equal(t, "charlie", collection.Creator)
	assert.Equal(t, int64(100), collection.MaxSupply)

	price, err := svc.GetPrice(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), price)

	// The registry knows this market as the collection's mint authority:
	// nobody else can mint.
	_, err = reg.Mint(ctx, "charlie", collection.ID, "charlie", "Charlie")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCreateEventPublishes(t *testing.T) {
	svc, _, _ := setupMarket(t)
	pub := new(MockPublisher)
	pub.On("PublishCollectionCreated", mock.AnythingOfType("models.CollectionCreatedEvent")).Return(nil)
	svc.Kafka = pub

	_, err := svc.CreateEvent(context.Background(), "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)
	pub.AssertCalled(t, "PublishCollectionCreated", mock.AnythingOfType("models.CollectionCreatedEvent"))
}

func TestGetPriceUnknownCollection(t *testing.T) {
	svc, _, _ := setupMarket(t)

	price, err := svc.GetPrice(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), price)
}

func TestPurchase(t *testing.T) {
	svc, tok, reg := setupMarket(t)
	ctx := context.Background()

	collection, err := svc.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)

	require.NoError(t, tok.Mint(ctx, "alice", 100))
	require.NoError(t, tok.Approve(ctx, "alice", marketAccount, 20))

	ticket, err := svc.Purchase(ctx, "alice", collection.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ticket.TicketID)
	assert.Equal(t, "alice", ticket.Holder)
	assert.Equal(t, "Alice", ticket.HolderName)

	holder, err := reg.HolderOf(ctx, collection.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", holder)

	// Proceeds land with the creator.
	charlieBalance, _ := tok.BalanceOf(ctx, "charlie")
	aliceBalance, _ := tok.BalanceOf(ctx, "alice")
	assert.Equal(t, int64(20), charlieBalance)
	assert.Equal(t, int64(80), aliceBalance)
}

func TestPurchaseWithoutAllowanceDoesNotMint(t *testing.T) {
	svc, tok, reg := setupMarket(t)
	ctx := context.Background()

	collection, err := svc.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)

	require.NoError(t, tok.Mint(ctx, "alice", 100))

	_, err = svc.Purchase(ctx, "alice", collection.ID, "Alice")
	assert.ErrorIs(t, err, models.ErrInsufficientAllowance)

	// A failed payment never mints a ticket.
	fetched, err := reg.GetCollection(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetched.MintedCount)

	charlieBalance, _ := tok.BalanceOf(ctx, "charlie")
	assert.Equal(t, int64(0), charlieBalance)
}

func TestPurchaseWithoutBalanceDoesNotMint(t *testing.T) {
	svc, tok, reg := setupMarket(t)
	ctx := context.Background()

	collection, err := svc.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)

	require.NoError(t, tok.Mint(ctx, "alice", 5))
	require.NoError(t, tok.Approve(ctx, "alice", marketAccount, 20))

	_, err = svc.Purchase(ctx, "alice", collection.ID, "Alice")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	fetched, err := reg.GetCollection(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetched.MintedCount)
}

func TestPurchaseSupplyExhausted(t *testing.T) {
	svc, tok, _ := setupMarket(t)
	ctx := context.Background()

	collection, err := svc.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)

	require.NoError(t, tok.Mint(ctx, "alice", 100))
	require.NoError(t, tok.Approve(ctx, "alice", marketAccount, 40))

	_, err = svc.Purchase(ctx, "alice", collection.ID, "Alice")
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, "alice", collection.ID, "Alice")
	assert.ErrorIs(t, err, models.ErrSupplyExhausted)

	// The failed second purchase must not take payment either.
	aliceBalance, _ := tok.BalanceOf(ctx, "alice")
	assert.Equal(t, int64(80), aliceBalance)
}

func TestPurchaseUnknownCollection(t *testing.T) {
	svc, _, _ := setupMarket(t)

	_, err := svc.Purchase(context.Background(), "alice", "unknown", "Alice")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
