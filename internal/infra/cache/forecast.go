package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
)

const defaultForecastTTL = 5 * time.Minute

// ForecastCache memoizes forecast computations. Keys embed the owning user
// id as a prefix so that all cached forecasts for a user can be invalidated
// in one call when the underlying entries change.
type ForecastCache struct {
	store *ExpiringCache[domain.Forecast]
	codec *Codec
	ttl   time.Duration
}

// NewForecastCache constructs a forecast cache with the provided result TTL.
// Forecast inputs change frequently, so the TTL should stay in the minutes
// range; non-positive values fall back to 5 minutes.
func NewForecastCache(ttl time.Duration) *ForecastCache {
	if ttl <= 0 {
		ttl = defaultForecastTTL
	}
	return &ForecastCache{
		store: New[domain.Forecast](),
		codec: NewCodec(),
		ttl:   ttl,
	}
}

// WithClock overrides the internal clock, used in tests.
func (f *ForecastCache) WithClock(now func() time.Time) *ForecastCache {
	f.store.WithClock(now)
	return f
}

// WithSweepInterval starts the underlying store's background sweeper.
func (f *ForecastCache) WithSweepInterval(interval time.Duration) *ForecastCache {
	f.store.WithSweepInterval(interval)
	return f
}

// Close stops the background sweeper, if one was started.
func (f *ForecastCache) Close() {
	f.store.Close()
}

// GenerateCacheKey derives the cache key for a forecast request. Every
// parameter that affects the result is part of the key; category ids are
// sorted first so logically equal requests collide.
func (f *ForecastCache) GenerateCacheKey(params domain.ForecastParams) string {
	normalized := params
	if len(params.CategoryIDs) > 0 {
		normalized.CategoryIDs = append([]string(nil), params.CategoryIDs...)
		sort.Strings(normalized.CategoryIDs)
	}
	normalized.UserID = "" // already encoded in the prefix

	return fmt.Sprintf("user:%s:forecast:%s", params.UserID, f.codec.GenerateKey(normalized))
}

// Get returns the cached forecast under key, if still live.
func (f *ForecastCache) Get(key string) (domain.Forecast, bool) {
	return f.store.Get(key)
}

// Set stores the forecast under key with the configured TTL.
func (f *ForecastCache) Set(key string, value domain.Forecast) {
	f.store.Set(key, value, f.ttl)
}

// Delete removes the forecast under key and reports whether anything was
// removed.
func (f *ForecastCache) Delete(key string) bool {
	return f.store.Delete(key)
}

// Clear removes every cached forecast.
func (f *ForecastCache) Clear() {
	f.store.Clear()
}

// InvalidateUserCache removes every cached forecast belonging to userID and
// returns how many were removed. Called whenever the user's entries mutate.
func (f *ForecastCache) InvalidateUserCache(userID string) int {
	if userID == "" {
		return 0
	}
	return f.store.InvalidateByPattern(fmt.Sprintf("user:%s:*", userID))
}

// Stats reports the current store composition.
func (f *ForecastCache) Stats() port.CacheStats {
	s := f.store.Stats()
	return port.CacheStats{Size: s.Size, Expired: s.Expired, Valid: s.Valid}
}

var _ port.ForecastCache = (*ForecastCache)(nil)
