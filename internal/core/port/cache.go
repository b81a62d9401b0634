package port

import (
	"time"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
)

// CacheStats reports the composition of a cache at a point in time.
// Size counts every held entry including expired-but-unswept ones, so
// Valid + Expired == Size always holds.
type CacheStats struct {
	Size    int `json:"size"`
	Expired int `json:"expired"`
	Valid   int `json:"valid"`
}

// ForecastCache memoizes forecast computations keyed by their parameters.
type ForecastCache interface {
	GenerateCacheKey(params domain.ForecastParams) string
	Get(key string) (domain.Forecast, bool)
	Set(key string, value domain.Forecast)
	Delete(key string) bool
	Clear()
	InvalidateUserCache(userID string) int
	Stats() CacheStats
}

// DelayStatus is the result of querying the login attempt tracker. When two
// tracking keys block simultaneously, Key and RemainingDelay describe the one
// with the larger remaining delay.
type DelayStatus struct {
	IsDelayed      bool
	Key            string
	RemainingDelay time.Duration
}

// LoginAttemptTracker throttles repeated failed logins per account identifier
// and per client address. CheckDelay is a pure query and never fails;
// IncrementAttempts and ResetAllAttempts are fire-and-forget from the
// caller's perspective.
type LoginAttemptTracker interface {
	CheckDelay(email, ipAddress string) DelayStatus
	IncrementAttempts(email, ipAddress string)
	ResetAllAttempts(email, ipAddress string)
}
