package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/database"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/secondary/db"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := database.CreateSchema(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { bunDB.Close() })
	return db.New(bunDB)
}

func TestListingLifecycle(t *testing.T) {
	listingDB := setupTestDB(t)
	ctx := context.Background()

	listing := models.Listing{
		CollectionID: "col-1",
		TicketID:     0,
		Lister:       "alice",
		ListerName:   "Alice",
		HighestBid:   150,
		ListedAt:     time.Now(),
	}
	require.NoError(t, listingDB.CreateListing(ctx, listing))

	fetched, err := listingDB.GetListing(ctx, "col-1", 0)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "alice", fetched.Lister)
	assert.Empty(t, fetched.HighestBidder)

	fetched.HighestBid = 155
	fetched.HighestBidder = "bob"
	fetched.HighestBidderName = "Bob"
	require.NoError(t, listingDB.UpdateBid(ctx, *fetched))

	updated, err := listingDB.GetListing(ctx, "col-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(155), updated.HighestBid)
	assert.Equal(t, "bob", updated.HighestBidder)
	// Lister snapshot survives bid updates.
	assert.Equal(t, "Alice", updated.ListerName)

	require.NoError(t, listingDB.DeleteListing(ctx, "col-1", 0))
	gone, err := listingDB.GetListing(ctx, "col-1", 0)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestListingsByCollection(t *testing.T) {
	listingDB := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []int64{2, 0, 1} {
		require.NoError(t, listingDB.CreateListing(ctx, models.Listing{
			CollectionID: "col-1",
			TicketID:     id,
			Lister:       "alice",
			HighestBid:   100 + id,
			ListedAt:     time.Now(),
		}))
	}
	require.NoError(t, listingDB.CreateListing(ctx, models.Listing{
		CollectionID: "col-2",
		TicketID:     0,
		Lister:       "bob",
		HighestBid:   50,
		ListedAt:     time.Now(),
	}))

	listings, err := listingDB.ListingsByCollection(ctx, "col-1")
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, int64(0), listings[0].TicketID)
	assert.Equal(t, int64(2), listings[2].TicketID)
}
