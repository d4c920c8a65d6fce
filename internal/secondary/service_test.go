package secondary_test

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
	"ms-marketplace/internal/secondary"
	"ms-marketplace/internal/token"
)

const (
	primaryAccount = "market:primary"
	escrowAccount  = "market:escrow"
)

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) LockListing(collectionID string, ticketID int64, owner string) (bool, error) {
	args := m.Called(collectionID, ticketID, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) UnlockListing(collectionID string, ticketID int64, owner string) error {
	args := m.Called(collectionID, ticketID, owner)
	return args.Error(0)
}

type fixture struct {
	registry  *registry.Service
	token     *token.Service
	primary   *primary.Service
	secondary *secondary.Service
	bun       *bun.DB
}

func setup(t *testing.T) *fixture {
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
	return &fixture{
		registry:  reg,
		token:     tok,
		primary:   primary.NewService(bunDB, reg, tok, nil, primaryAccount),
		secondary: secondary.NewService(bunDB, reg, tok, nil, nil, escrowAccount, 5),
		bun:       bunDB,
	}
}

// soldTicket creates Charlie's concert (price 20) and sells ticket 0 to
// alice, who pre-approves both markets for later operations.
func soldTicket(t *testing.T, f *fixture) string {
	ctx := context.Background()

	collection, err := f.primary.CreateEvent(ctx, "charlie", "Charlie's concert", 20, 1)
	require.NoError(t, err)

	require.NoError(t, f.token.Mint(ctx, "alice", 100))
	require.NoError(t, f.token.Approve(ctx, "alice", primaryAccount, 20))

	_, err = f.primary.Purchase(ctx, "alice", collection.ID, "Alice")
	require.NoError(t, err)

	return collection.ID
}

func listTicket(t *testing.T, f *fixture, collectionID string, reserve int64) {
	ctx := context.Background()
	require.NoError(t, f.registry.Approve(ctx, "alice", escrowAccount, collectionID, 0))
	require.NoError(t, f.secondary.ListTicket(ctx, "alice", collectionID, 0, reserve))
}

func TestListTicketMovesCustodyToEscrow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)

	aliceBefore, _ := f.token.BalanceOf(ctx, "alice")
	listTicket(t, f, collectionID, 150)

	holder, err := f.registry.HolderOf(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Equal(t, escrowAccount, holder)

	// Listing moves the ticket, not money.
	aliceAfter, _ := f.token.BalanceOf(ctx, "alice")
	assert.Equal(t, aliceBefore, aliceAfter)

	bid, err := f.secondary.GetHighestBid(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bid)

	bidder, err := f.secondary.GetHighestBidder(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Empty(t, bidder)
}

func TestListTicketWithoutApproval(t *testing.T) {
	f := setup(t)
	collectionID := soldTicket(t, f)

	// The custody transfer into escrow needs the lister's prior delegate
	// approval.
	err := f.secondary.ListTicket(context.Background(), "alice", collectionID, 0, 150)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestListTicketNotHolder(t *testing.T) {
	f := setup(t)
	collectionID := soldTicket(t, f)

	err := f.secondary.ListTicket(context.Background(), "bob", collectionID, 0, 150)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestListUsedTicket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)

	require.NoError(t, f.registry.SetUsed(ctx, "charlie", collectionID, 0))
	require.NoError(t, f.registry.Approve(ctx, "alice", escrowAccount, collectionID, 0))

	err := f.secondary.ListTicket(ctx, "alice", collectionID, 0, 150)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSubmitBidEscrowsFunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))

	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	// Escrow holds exactly the highest bid.
	escrowBalance, _ := f.token.BalanceOf(ctx, escrowAccount)
	bobBalance, _ := f.token.BalanceOf(ctx, "bob")
	assert.Equal(t, int64(155), escrowBalance)
	assert.Equal(t, int64(45), bobBalance)

	bidder, _ := f.secondary.GetHighestBidder(ctx, collectionID, 0)
	bid, _ := f.secondary.GetHighestBid(ctx, collectionID, 0)
	assert.Equal(t, "bob", bidder)
	assert.Equal(t, int64(155), bid)
}

func TestSubmitBidAtOrBelowHighestIsNoOp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 500))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 500))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	require.NoError(t, f.token.Mint(ctx, "dave", 500))
	require.NoError(t, f.token.Approve(ctx, "dave", escrowAccount, 500))

	// A bid equal to the current highest loses; strictly greater wins.
	require.NoError(t, f.secondary.SubmitBid(ctx, "dave", collectionID, 0, 155, "Dave"))

	bidder, _ := f.secondary.GetHighestBidder(ctx, collectionID, 0)
	bid, _ := f.secondary.GetHighestBid(ctx, collectionID, 0)
	assert.Equal(t, "bob", bidder)
	assert.Equal(t, int64(155), bid)

	// No balance moved for the losing bid.
	daveBalance, _ := f.token.BalanceOf(ctx, "dave")
	escrowBalance, _ := f.token.BalanceOf(ctx, escrowAccount)
	assert.Equal(t, int64(500), daveBalance)
	assert.Equal(t, int64(155), escrowBalance)
}

func TestOutbidRefundsPreviousBidder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	require.NoError(t, f.token.Mint(ctx, "dave", 200))
	require.NoError(t, f.token.Approve(ctx, "dave", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "dave", collectionID, 0, 180, "Dave"))

	// Bob got his 155 back in full; escrow holds only Dave's 180.
	bobBalance, _ := f.token.BalanceOf(ctx, "bob")
	escrowBalance, _ := f.token.BalanceOf(ctx, escrowAccount)
	assert.Equal(t, int64(200), bobBalance)
	assert.Equal(t, int64(180), escrowBalance)

	bidder, _ := f.secondary.GetHighestBidder(ctx, collectionID, 0)
	assert.Equal(t, "dave", bidder)
}

func TestSubmitBidWithoutListing(t *testing.T) {
	f := setup(t)
	collectionID := soldTicket(t, f)

	err := f.secondary.SubmitBid(context.Background(), "bob", collectionID, 0, 155, "Bob")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSubmitBidOnUsedTicket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	// The creator checks the ticket in while it sits in escrow.
	require.NoError(t, f.registry.SetUsed(ctx, "charlie", collectionID, 0))

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))

	err := f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSubmitBidInsufficientFunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 100))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))

	err := f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	// Rejected pull leaves the listing untouched.
	bidder, _ := f.secondary.GetHighestBidder(ctx, collectionID, 0)
	assert.Empty(t, bidder)
}

// TestAcceptBidSettlement is the full resale scenario: Alice bought for 20,
// lists at 150, Bob bids 155, Alice accepts. Fee is 155*5/100 = 7 truncated,
// payout 148, and Bob walks away holding ticket 0 under his own name.
func TestAcceptBidSettlement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	charlieBefore, _ := f.token.BalanceOf(ctx, "charlie")
	aliceBefore, _ := f.token.BalanceOf(ctx, "alice")

	require.NoError(t, f.secondary.AcceptBid(ctx, "alice", collectionID, 0))

	aliceAfter, _ := f.token.BalanceOf(ctx, "alice")
	charlieAfter, _ := f.token.BalanceOf(ctx, "charlie")
	escrowAfter, _ := f.token.BalanceOf(ctx, escrowAccount)

	// fee + payout == highestBid, and escrow is drained.
	assert.Equal(t, int64(148), aliceAfter-aliceBefore)
	assert.Equal(t, int64(7), charlieAfter-charlieBefore)
	assert.Equal(t, int64(0), escrowAfter)

	// Ticket belongs to Bob under his submitted name.
	ticket, err := f.registry.GetTicket(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Equal(t, "bob", ticket.Holder)
	assert.Equal(t, "Bob", ticket.HolderName)

	// Listing is gone.
	listing, err := f.secondary.GetListing(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestAcceptBidFeeTruncation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 10)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 99, "Bob"))

	aliceBefore, _ := f.token.BalanceOf(ctx, "alice")
	charlieBefore, _ := f.token.BalanceOf(ctx, "charlie")

	require.NoError(t, f.secondary.AcceptBid(ctx, "alice", collectionID, 0))

	// 99*5/100 truncates to 4; the remainder of the bid goes to the lister.
	aliceAfter, _ := f.token.BalanceOf(ctx, "alice")
	charlieAfter, _ := f.token.BalanceOf(ctx, "charlie")
	assert.Equal(t, int64(95), aliceAfter-aliceBefore)
	assert.Equal(t, int64(4), charlieAfter-charlieBefore)
}

func TestAcceptBidRequiresLister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	err := f.secondary.AcceptBid(ctx, "bob", collectionID, 0)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAcceptBidWithoutBid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	err := f.secondary.AcceptBid(ctx, "alice", collectionID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestAcceptBidWithoutListing(t *testing.T) {
	f := setup(t)
	collectionID := soldTicket(t, f)

	err := f.secondary.AcceptBid(context.Background(), "alice", collectionID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

// TestDelistRoundTrip verifies the custody round-trip: list then delist with
// no intervening accept restores holder, holder name, and refunds a pending
// bid in full.
func TestDelistRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)

	// Alice renames her ticket before listing; delisting must restore the
	// snapshot taken at listing time.
	require.NoError(t, f.registry.UpdateHolderName(ctx, "alice", collectionID, 0, "Alice Smith"))
	listTicket(t, f, collectionID, 150)

	require.NoError(t, f.token.Mint(ctx, "bob", 200))
	require.NoError(t, f.token.Approve(ctx, "bob", escrowAccount, 200))
	require.NoError(t, f.secondary.SubmitBid(ctx, "bob", collectionID, 0, 155, "Bob"))

	require.NoError(t, f.secondary.DelistTicket(ctx, "alice", collectionID, 0))

	ticket, err := f.registry.GetTicket(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", ticket.Holder)
	assert.Equal(t, "Alice Smith", ticket.HolderName)

	// Bob's escrowed bid came back in full.
	bobBalance, _ := f.token.BalanceOf(ctx, "bob")
	escrowBalance, _ := f.token.BalanceOf(ctx, escrowAccount)
	assert.Equal(t, int64(200), bobBalance)
	assert.Equal(t, int64(0), escrowBalance)

	listing, err := f.secondary.GetListing(ctx, collectionID, 0)
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestDelistRequiresLister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)
	listTicket(t, f, collectionID, 150)

	err := f.secondary.DelistTicket(ctx, "bob", collectionID, 0)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestListingLockHeld(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)

	locks := new(MockLocker)
	locks.On("LockListing", collectionID, int64(0), "alice").Return(false, nil)
	f.secondary.Locks = locks

	require.NoError(t, f.registry.Approve(ctx, "alice", escrowAccount, collectionID, 0))
	err := f.secondary.ListTicket(ctx, "alice", collectionID, 0, 150)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	locks.AssertExpectations(t)
}

func TestListingLockAcquiredAndReleased(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collectionID := soldTicket(t, f)

	locks := new(MockLocker)
	locks.On("LockListing", collectionID, int64(0), "alice").Return(true, nil)
	locks.On("UnlockListing", collectionID, int64(0), "alice").Return(nil)
	f.secondary.Locks = locks

	require.NoError(t, f.registry.Approve(ctx, "alice", escrowAccount, collectionID, 0))
	require.NoError(t, f.secondary.ListTicket(ctx, "alice", collectionID, 0, 150))
	locks.AssertExpectations(t)
}
