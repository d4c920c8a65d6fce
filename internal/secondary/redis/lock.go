package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes secondary-market mutations per (collection, ticket): a
// submitBid and an acceptBid/delistTicket on the same ticket can never both
// observe a current highest bid and then commit conflicting refund or payout
// decisions.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

func listingKey(collectionID string, ticketID int64) string {
	return fmt.Sprintf("listing_lock:%s:%d", collectionID, ticketID)
}

// getLockDuration reads the lock TTL from the environment, defaulting to 30
// seconds. The TTL only bounds damage from a crashed holder; operations
// release explicitly.
func (r *Redis) getLockDuration() time.Duration {
	defaultDuration := 30 * time.Second

	ttlStr := os.Getenv("LISTING_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: invalid LISTING_LOCK_TTL_SECONDS value '" + ttlStr + "', using default 30s")
		return defaultDuration
	}
	return time.Duration(ttlSec) * time.Second
}

// LockListing acquires the per-ticket mutex. Returns false if another
// operation holds it.
func (r *Redis) LockListing(collectionID string, ticketID int64, owner string) (bool, error) {
	key := listingKey(collectionID, ticketID)
	ok, err := r.Client.SetNX(context.Background(), key, owner, r.getLockDuration()).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// UnlockListing releases the mutex if owner still holds it.
func (r *Redis) UnlockListing(collectionID string, ticketID int64, owner string) error {
	key := listingKey(collectionID, ticketID)

	val, err := r.Client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val != owner {
		r.Logger.Printf("REDIS: listing lock %s held by %s, not releasing for %s", key, val, owner)
		return nil
	}
	return r.Client.Del(context.Background(), key).Err()
}
