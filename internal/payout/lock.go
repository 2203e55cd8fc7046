package payout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrPayoutInFlight is returned when another payout for the same creator
// holds the lock.
var ErrPayoutInFlight = errors.New("another payout is already in progress for this creator")

// lockTTL bounds how long a crashed holder can block a creator's payouts.
const lockTTL = 2 * time.Minute

// CreatorLocks serializes payout creation per creator. The balance read
// and the transaction insert must not interleave for the same creator,
// otherwise two concurrent requests can both spend the same balance.
// With a Redis client the lock is a SET NX lease shared across
// instances; without one it degrades to an in-process mutex map.
type CreatorLocks struct {
	redis *redis.Client

	mu   sync.Mutex
	held map[uuid.UUID]bool
}

// NewCreatorLocks creates a lock registry. redisClient may be nil.
func NewCreatorLocks(redisClient *redis.Client) *CreatorLocks {
	return &CreatorLocks{
		redis: redisClient,
		held:  make(map[uuid.UUID]bool),
	}
}

// Acquire takes the payout lock for a creator. It does not block waiting
// for a holder: a second concurrent payout is an error, not a queue entry.
func (l *CreatorLocks) Acquire(ctx context.Context, creatorID uuid.UUID) error {
	if l.redis != nil {
		ok, err := l.redis.SetNX(ctx, "payout:lock:"+creatorID.String(), "1", lockTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			return ErrPayoutInFlight
		}
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[creatorID] {
		return ErrPayoutInFlight
	}
	l.held[creatorID] = true
	return nil
}

// Release frees the payout lock for a creator
func (l *CreatorLocks) Release(ctx context.Context, creatorID uuid.UUID) {
	if l.redis != nil {
		l.redis.Del(ctx, "payout:lock:"+creatorID.String())
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, creatorID)
}
