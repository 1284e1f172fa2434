package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID string) error
}

// CacheStoreInterface defines the interface for confirmation caching and
// pending re-check counting.
type CacheStoreInterface interface {
	GetConfirmation(ctx context.Context, reference string) (*CachedConfirmation, error)
	SetConfirmation(ctx context.Context, confirmation *CachedConfirmation) error
	IncrementPendingChecks(ctx context.Context, reference string) (int64, error)
	ClearPendingChecks(ctx context.Context, reference string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
