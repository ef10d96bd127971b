package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"medride/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client     *redis.Client
	geocodeTTL time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, geocodeTTL time.Duration) *CacheStore {
	if geocodeTTL <= 0 {
		geocodeTTL = DefaultGeocodeTTL
	}
	return &CacheStore{client: client, geocodeTTL: geocodeTTL}
}

// Cache TTL constants
const (
	DefaultGeocodeTTL = 24 * time.Hour  // Addresses rarely move
	ProfileCacheTTL   = 5 * time.Minute // Roles change rarely but must not stay stale for long
)

// Key prefixes
const (
	geocodeCachePrefix = "cache:geocode:"
	profileCachePrefix = "cache:profile:"
)

// CachedPoint represents a cached geocode result.
type CachedPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CachedProfile represents the cached identity part of a profile.
type CachedProfile struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// GeocodeKey returns the cache key of an address. Case and surrounding space are ignored.
func GeocodeKey(address string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(address))))
	return geocodeCachePrefix + hex.EncodeToString(sum[:])
}

// GetGeocode retrieves a geocode result from cache.
func (s *CacheStore) GetGeocode(ctx context.Context, address string) (*CachedPoint, error) {
	data, err := s.client.Get(ctx, GeocodeKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var point CachedPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// SetGeocode stores a geocode result in cache.
func (s *CacheStore) SetGeocode(ctx context.Context, address string, point CachedPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, GeocodeKey(address), data, s.geocodeTTL).Err()
}

// GetProfile retrieves a profile from cache.
func (s *CacheStore) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	data, err := s.client.Get(ctx, profileCachePrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedProfile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &domain.Profile{ID: cached.ID, Role: domain.Role(cached.Role), FullName: cached.FullName}, nil
}

// SetProfile stores a profile in cache.
func (s *CacheStore) SetProfile(ctx context.Context, p *domain.Profile) error {
	data, err := json.Marshal(CachedProfile{ID: p.ID, Role: string(p.Role), FullName: p.FullName})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileCachePrefix+p.ID, data, ProfileCacheTTL).Err()
}

// InvalidateProfile removes a profile from cache.
func (s *CacheStore) InvalidateProfile(ctx context.Context, id string) error {
	return s.client.Del(ctx, profileCachePrefix+id).Err()
}
