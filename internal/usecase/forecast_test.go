package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/cache"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

type fakeEntryRepo struct {
	entries    []domain.Entry
	sinceCalls int
}

func (r *fakeEntryRepo) Create(_ context.Context, entry domain.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeEntryRepo) Update(context.Context, domain.Entry) error {
	return errors.New("unexpected call")
}

func (r *fakeEntryRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call")
}

func (r *fakeEntryRepo) GetByID(context.Context, string) (*domain.Entry, error) {
	return nil, errors.New("unexpected call")
}

func (r *fakeEntryRepo) ListByUser(context.Context, string, port.EntryFilter) ([]domain.Entry, error) {
	return nil, errors.New("unexpected call")
}

func (r *fakeEntryRepo) ListByUserSince(_ context.Context, userID string, since time.Time) ([]domain.Entry, error) {
	r.sinceCalls++
	var out []domain.Entry
	for _, entry := range r.entries {
		if entry.UserID == userID && !entry.OccurredAt.Before(since) {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeCategoryRepo struct {
	categories []domain.Category
}

func (r *fakeCategoryRepo) Create(_ context.Context, category domain.Category) error {
	r.categories = append(r.categories, category)
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	for _, category := range r.categories {
		if category.ID == id {
			copy := category
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCategoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Category, error) {
	var out []domain.Category
	for _, category := range r.categories {
		if category.UserID == userID {
			out = append(out, category)
		}
	}
	return out, nil
}

type forecastFixture struct {
	service *ForecastService
	entries *fakeEntryRepo
	cache   *cache.ForecastCache
	clock   *time.Time
}

// 90-day lookback means three 30-day months of history feed the average.
const testLookback = 90 * 24 * time.Hour

func newForecastFixture(t *testing.T) *forecastFixture {
	t.Helper()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := &now

	entries := &fakeEntryRepo{}
	categories := &fakeCategoryRepo{categories: []domain.Category{
		{ID: "cat-salary", UserID: "user-1", Name: "Salary", Kind: domain.EntryKindIncome},
		{ID: "cat-rent", UserID: "user-1", Name: "Rent", Kind: domain.EntryKindExpense},
	}}

	// 300000 income and 90000 expense per 30-day month for three months.
	for month := 1; month <= 3; month++ {
		occurred := now.AddDate(0, 0, -30*month+1)
		entries.entries = append(entries.entries,
			domain.Entry{ID: "inc-" + string(rune('0'+month)), UserID: "user-1", CategoryID: "cat-salary",
				Kind: domain.EntryKindIncome, AmountCents: 300000, OccurredAt: occurred},
			domain.Entry{ID: "exp-" + string(rune('0'+month)), UserID: "user-1", CategoryID: "cat-rent",
				Kind: domain.EntryKindExpense, AmountCents: 90000, OccurredAt: occurred},
		)
	}

	forecastCache := cache.NewForecastCache(5 * time.Minute).
		WithClock(func() time.Time { return *clock })
	t.Cleanup(forecastCache.Close)

	service := NewForecastService(entries, categories, forecastCache, testLookback, nil, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return *clock })

	return &forecastFixture{service: service, entries: entries, cache: forecastCache, clock: clock}
}

func defaultParams() domain.ForecastParams {
	return domain.ForecastParams{
		UserID:         "user-1",
		HorizonMonths:  6,
		IncludeIncome:  true,
		IncludeExpense: true,
	}
}

func TestForecastComputesLinearProjection(t *testing.T) {
	fx := newForecastFixture(t)

	forecast, err := fx.service.Forecast(context.Background(), defaultParams())
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	// 900000 income minus 270000 expense over 3 months -> 210000/month net.
	if forecast.NetPerMonthCents != 210000 {
		t.Errorf("NetPerMonthCents = %d, want 210000", forecast.NetPerMonthCents)
	}
	if forecast.ProjectedNetCents != 210000*6 {
		t.Errorf("ProjectedNetCents = %d, want %d", forecast.ProjectedNetCents, 210000*6)
	}

	if len(forecast.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(forecast.Lines))
	}
	byCategory := map[string]domain.ForecastLine{}
	for _, line := range forecast.Lines {
		byCategory[line.CategoryID] = line
	}
	if got := byCategory["cat-salary"].MonthlyAverageCents; got != 300000 {
		t.Errorf("salary monthly average = %d, want 300000", got)
	}
	if got := byCategory["cat-rent"].MonthlyAverageCents; got != -90000 {
		t.Errorf("rent monthly average = %d, want -90000", got)
	}
	if byCategory["cat-salary"].CategoryName != "Salary" {
		t.Errorf("salary line name = %q", byCategory["cat-salary"].CategoryName)
	}
}

func TestForecastCacheHitSkipsRecompute(t *testing.T) {
	fx := newForecastFixture(t)

	first, err := fx.service.Forecast(context.Background(), defaultParams())
	if err != nil {
		t.Fatalf("first forecast: %v", err)
	}
	second, err := fx.service.Forecast(context.Background(), defaultParams())
	if err != nil {
		t.Fatalf("second forecast: %v", err)
	}

	if fx.entries.sinceCalls != 1 {
		t.Errorf("repository reads = %d, want 1 (second call must hit the cache)", fx.entries.sinceCalls)
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("cached forecast must preserve the original GeneratedAt")
	}
}

func TestForecastCacheExpiresAfterTTL(t *testing.T) {
	fx := newForecastFixture(t)

	if _, err := fx.service.Forecast(context.Background(), defaultParams()); err != nil {
		t.Fatalf("forecast: %v", err)
	}

	*fx.clock = fx.clock.Add(5 * time.Minute)

	if _, err := fx.service.Forecast(context.Background(), defaultParams()); err != nil {
		t.Fatalf("forecast after ttl: %v", err)
	}
	if fx.entries.sinceCalls != 2 {
		t.Errorf("repository reads = %d, want 2 after TTL expiry", fx.entries.sinceCalls)
	}
}

func TestForecastInvalidationForcesRecompute(t *testing.T) {
	fx := newForecastFixture(t)

	if _, err := fx.service.Forecast(context.Background(), defaultParams()); err != nil {
		t.Fatalf("forecast: %v", err)
	}

	if removed := fx.cache.InvalidateUserCache("user-1"); removed != 1 {
		t.Fatalf("invalidated = %d, want 1", removed)
	}

	if _, err := fx.service.Forecast(context.Background(), defaultParams()); err != nil {
		t.Fatalf("forecast after invalidation: %v", err)
	}
	if fx.entries.sinceCalls != 2 {
		t.Errorf("repository reads = %d, want 2 after invalidation", fx.entries.sinceCalls)
	}
}

func TestForecastDistinguishesParams(t *testing.T) {
	fx := newForecastFixture(t)

	params := defaultParams()
	if _, err := fx.service.Forecast(context.Background(), params); err != nil {
		t.Fatalf("forecast: %v", err)
	}

	params.HorizonMonths = 12
	forecast, err := fx.service.Forecast(context.Background(), params)
	if err != nil {
		t.Fatalf("forecast with new horizon: %v", err)
	}
	if fx.entries.sinceCalls != 2 {
		t.Errorf("repository reads = %d, want 2 (different params must not share a key)", fx.entries.sinceCalls)
	}
	if forecast.ProjectedNetCents != 210000*12 {
		t.Errorf("ProjectedNetCents = %d, want %d", forecast.ProjectedNetCents, 210000*12)
	}
}

func TestForecastCategoryFilter(t *testing.T) {
	fx := newForecastFixture(t)

	params := defaultParams()
	params.CategoryIDs = []string{"cat-rent"}

	forecast, err := fx.service.Forecast(context.Background(), params)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(forecast.Lines) != 1 || forecast.Lines[0].CategoryID != "cat-rent" {
		t.Fatalf("lines = %+v, want only cat-rent", forecast.Lines)
	}
	if forecast.NetPerMonthCents != -90000 {
		t.Errorf("NetPerMonthCents = %d, want -90000", forecast.NetPerMonthCents)
	}
}

func TestForecastExpenseOnly(t *testing.T) {
	fx := newForecastFixture(t)

	params := defaultParams()
	params.IncludeIncome = false

	forecast, err := fx.service.Forecast(context.Background(), params)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	for _, line := range forecast.Lines {
		if line.CategoryID == "cat-salary" {
			t.Error("income category must be excluded when IncludeIncome is false")
		}
	}
}

func TestForecastRejectsInvalidParams(t *testing.T) {
	fx := newForecastFixture(t)

	cases := []domain.ForecastParams{
		{UserID: "", HorizonMonths: 6, IncludeIncome: true, IncludeExpense: true},
		{UserID: "user-1", HorizonMonths: 0, IncludeIncome: true, IncludeExpense: true},
		{UserID: "user-1", HorizonMonths: 121, IncludeIncome: true, IncludeExpense: true},
		{UserID: "user-1", HorizonMonths: 6},
	}
	for i, params := range cases {
		if _, err := fx.service.Forecast(context.Background(), params); !errors.Is(err, ErrInvalidForecastParams) {
			t.Errorf("case %d: err = %v, want ErrInvalidForecastParams", i, err)
		}
	}
}
