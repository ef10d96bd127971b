package redis

import (
	"context"
	"time"

	"medride/internal/domain"
)

// GeocodeCacheInterface defines the interface for geocode caching.
type GeocodeCacheInterface interface {
	GetGeocode(ctx context.Context, address string) (*CachedPoint, error)
	SetGeocode(ctx context.Context, address string, point CachedPoint) error
}

// ProfileCacheInterface defines the interface for profile caching.
type ProfileCacheInterface interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	SetProfile(ctx context.Context, p *domain.Profile) error
	InvalidateProfile(ctx context.Context, id string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireAcceptLock(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error)
	ReleaseAcceptLock(ctx context.Context, appointmentID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ GeocodeCacheInterface = (*CacheStore)(nil)
	_ ProfileCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface    = (*LockStore)(nil)
)
