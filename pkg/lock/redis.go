package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisTTL = 30 * time.Second

// ErrNotAcquired is returned when another owner holds the key.
var ErrNotAcquired = errors.New("lock held by another owner")

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements a best-effort distributed lock using SETNX + TTL.
type RedisLock struct {
	client redisStore
	ttl    time.Duration
}

// Handle is an acquired lock. Release only deletes the key while this owner still holds it.
type Handle struct {
	lock  *RedisLock
	key   string
	owner string
}

func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisLock{client: client, ttl: ttl}, nil
}

// Acquire tries once to own key; it returns ErrNotAcquired when somebody else holds it.
func (l *RedisLock) Acquire(ctx context.Context, key string) (*Handle, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Handle{lock: l, key: key, owner: owner}, nil
}

// Release frees the lock only if the owner value still matches.
func (h *Handle) Release(ctx context.Context) error {
	if h == nil || h.owner == "" {
		return nil
	}
	value, err := h.lock.client.Get(ctx, h.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			h.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != h.owner {
		h.owner = ""
		return nil
	}
	if err := h.lock.client.Del(ctx, h.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	h.owner = ""
	return nil
}
