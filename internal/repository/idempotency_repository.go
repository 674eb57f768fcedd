package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyRepository remembers which ticket a client-supplied idempotency key produced.
type IdempotencyRepository interface {
	// Claim records ticketID under key unless the key is already held. It returns the
	// ticket id already stored and false when the key was claimed before.
	Claim(ctx context.Context, key, ticketID string, ttl time.Duration) (existing string, claimed bool, err error)
	// Release drops a claim so a failed create can be retried with the same key.
	Release(ctx context.Context, key string) error
}

type redisIdempotencyRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisIdempotencyRepository stores keys in Redis with SET NX.
func NewRedisIdempotencyRepository(client *redis.Client) IdempotencyRepository {
	return &redisIdempotencyRepository{client: client, prefix: "idempotency:create:"}
}

func (r *redisIdempotencyRepository) Claim(ctx context.Context, key, ticketID string, ttl time.Duration) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, ticketID, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return ticketID, true, nil
	}
	existing, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return r.Claim(ctx, key, ticketID, ttl)
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (r *redisIdempotencyRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

type memoryIdempotencyEntry struct {
	ticketID  string
	expiresAt time.Time
}

// MemoryIdempotencyRepository is the in-process key store.
type MemoryIdempotencyRepository struct {
	mu      sync.Mutex
	entries map[string]memoryIdempotencyEntry
	now     func() time.Time
}

// NewMemoryIdempotencyRepository constructs an empty key store.
func NewMemoryIdempotencyRepository() *MemoryIdempotencyRepository {
	return &MemoryIdempotencyRepository{entries: make(map[string]memoryIdempotencyEntry), now: time.Now}
}

func (r *MemoryIdempotencyRepository) Claim(_ context.Context, key, ticketID string, ttl time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if entry, ok := r.entries[key]; ok && now.Before(entry.expiresAt) {
		return entry.ticketID, false, nil
	}
	r.entries[key] = memoryIdempotencyEntry{ticketID: ticketID, expiresAt: now.Add(ttl)}
	return ticketID, true, nil
}

func (r *MemoryIdempotencyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}
