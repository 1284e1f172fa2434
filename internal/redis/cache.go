package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	confirmationCachePrefix = "confirmation:"
	pendingCounterPrefix    = "pending:"

	// ConfirmationCacheTTL bounds how long a provider confirmation may be
	// served from cache before the provider is asked again.
	ConfirmationCacheTTL = 30 * time.Second

	// pendingCounterTTL bounds how long a reference keeps accumulating
	// pending re-checks before the count resets.
	pendingCounterTTL = 24 * time.Hour
)

// CachedConfirmation is the cached result of a provider status check.
type CachedConfirmation struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// CacheStore handles short-lived caching and counters in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetConfirmation retrieves a cached provider confirmation.
// Returns nil on a cache miss.
func (s *CacheStore) GetConfirmation(ctx context.Context, reference string) (*CachedConfirmation, error) {
	key := confirmationCachePrefix + reference

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedConfirmation
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// SetConfirmation caches a provider confirmation with a short TTL.
func (s *CacheStore) SetConfirmation(ctx context.Context, confirmation *CachedConfirmation) error {
	key := confirmationCachePrefix + confirmation.Reference

	data, err := json.Marshal(confirmation)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, ConfirmationCacheTTL).Err()
}

// IncrementPendingChecks bumps the pending re-check counter for a reference
// and returns the new count.
func (s *CacheStore) IncrementPendingChecks(ctx context.Context, reference string) (int64, error) {
	key := pendingCounterPrefix + reference

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := s.client.Expire(ctx, key, pendingCounterTTL).Err(); err != nil {
			return count, err
		}
	}

	return count, nil
}

// ClearPendingChecks removes the pending re-check counter for a reference,
// used once the payment reaches a terminal provider status.
func (s *CacheStore) ClearPendingChecks(ctx context.Context, reference string) error {
	key := fmt.Sprintf("%s%s", pendingCounterPrefix, reference)

	return s.client.Del(ctx, key).Err()
}
