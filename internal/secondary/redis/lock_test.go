package redis

import (
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListingKey(t *testing.T) {
	assert.Equal(t, "listing_lock:col-1:7", listingKey("col-1", 7))
	assert.Equal(t, "listing_lock:col-2:0", listingKey("col-2", 0))
}

func TestGetLockDurationDefault(t *testing.T) {
	r := &Redis{Logger: log.Default()}
	assert.Equal(t, 30*time.Second, r.getLockDuration())
}

func TestGetLockDurationFromEnv(t *testing.T) {
	t.Setenv("LISTING_LOCK_TTL_SECONDS", "90")
	r := &Redis{Logger: log.Default()}
	assert.Equal(t, 90*time.Second, r.getLockDuration())
}

func TestGetLockDurationInvalidEnv(t *testing.T) {
	t.Setenv("LISTING_LOCK_TTL_SECONDS", "ninety")
	r := &Redis{Logger: log.Default()}
	assert.Equal(t, 30*time.Second, r.getLockDuration())
}
