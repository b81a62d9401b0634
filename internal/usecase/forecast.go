package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/telemetry"
)

// ErrInvalidForecastParams indicates the forecast request parameters are out
// of range.
var ErrInvalidForecastParams = errors.New("invalid forecast parameters")

const (
	minHorizonMonths = 1
	maxHorizonMonths = 120

	// hoursPerMonth approximates a month for lookback averaging.
	hoursPerMonth = 24 * 30
)

// ForecastService computes per-user financial projections and memoizes them
// in the forecast cache. Identical parameters within the cache TTL are served
// without recomputation.
type ForecastService struct {
	entries    port.EntryRepository
	categories port.CategoryRepository
	cache      port.ForecastCache
	lookback   time.Duration
	metrics    *telemetry.Metrics
	log        *zap.Logger
	now        func() time.Time
}

// NewForecastService constructs a ForecastService. A non-positive lookback
// falls back to 90 days. metrics may be nil.
func NewForecastService(
	entries port.EntryRepository,
	categories port.CategoryRepository,
	cache port.ForecastCache,
	lookback time.Duration,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *ForecastService {
	if lookback <= 0 {
		lookback = 90 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ForecastService{
		entries:    entries,
		categories: categories,
		cache:      cache,
		lookback:   lookback,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *ForecastService) WithClock(now func() time.Time) *ForecastService {
	if now != nil {
		s.now = now
	}
	return s
}

// Forecast returns the projection for the given parameters, consulting the
// cache first.
func (s *ForecastService) Forecast(ctx context.Context, params domain.ForecastParams) (*domain.Forecast, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidForecastParams)
	}
	if params.HorizonMonths < minHorizonMonths || params.HorizonMonths > maxHorizonMonths {
		return nil, fmt.Errorf("%w: horizon must be between %d and %d months",
			ErrInvalidForecastParams, minHorizonMonths, maxHorizonMonths)
	}
	if !params.IncludeIncome && !params.IncludeExpense {
		return nil, fmt.Errorf("%w: at least one of income or expense must be included", ErrInvalidForecastParams)
	}

	key := s.cache.GenerateCacheKey(params)
	if cached, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.ForecastCacheHits.Inc()
		}
		return &cached, nil
	}
	if s.metrics != nil {
		s.metrics.ForecastCacheMisses.Inc()
	}

	forecast, err := s.compute(ctx, params)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, *forecast)
	return forecast, nil
}

// CacheStats exposes the forecast cache composition for the admin endpoint.
func (s *ForecastService) CacheStats() port.CacheStats {
	return s.cache.Stats()
}

func (s *ForecastService) compute(ctx context.Context, params domain.ForecastParams) (*domain.Forecast, error) {
	now := s.now().UTC()
	since := now.Add(-s.lookback)

	entries, err := s.entries.ListByUserSince(ctx, params.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("list entries for forecast: %w", err)
	}

	var wanted map[string]bool
	if len(params.CategoryIDs) > 0 {
		wanted = make(map[string]bool, len(params.CategoryIDs))
		for _, id := range params.CategoryIDs {
			wanted[id] = true
		}
	}

	totals := make(map[string]int64)
	for _, entry := range entries {
		if entry.Kind == domain.EntryKindIncome && !params.IncludeIncome {
			continue
		}
		if entry.Kind == domain.EntryKindExpense && !params.IncludeExpense {
			continue
		}
		if wanted != nil && !wanted[entry.CategoryID] {
			continue
		}
		totals[entry.CategoryID] += entry.SignedAmountCents()
	}

	names, err := s.categoryNames(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	months := s.lookback.Hours() / hoursPerMonth
	if months < 1 {
		months = 1
	}

	lines := make([]domain.ForecastLine, 0, len(totals))
	var netPerMonth int64
	for categoryID, total := range totals {
		monthly := int64(float64(total) / months)
		lines = append(lines, domain.ForecastLine{
			CategoryID:          categoryID,
			CategoryName:        names[categoryID],
			MonthlyAverageCents: monthly,
			ProjectedTotalCents: monthly * int64(params.HorizonMonths),
		})
		netPerMonth += monthly
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].CategoryID < lines[j].CategoryID })

	return &domain.Forecast{
		UserID:            params.UserID,
		HorizonMonths:     params.HorizonMonths,
		GeneratedAt:       now,
		NetPerMonthCents:  netPerMonth,
		ProjectedNetCents: netPerMonth * int64(params.HorizonMonths),
		Lines:             lines,
	}, nil
}

func (s *ForecastService) categoryNames(ctx context.Context, userID string) (map[string]string, error) {
	categories, err := s.categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories for forecast: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}
	return names, nil
}
