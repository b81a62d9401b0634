package domain

import "time"

// ForecastParams captures every input that affects a forecast computation.
// Volatile values (request time, trace identifiers) must never be added here:
// the forecast cache key is derived from this struct.
type ForecastParams struct {
	UserID         string   `json:"user_id"`
	HorizonMonths  int      `json:"horizon_months"`
	CategoryIDs    []string `json:"category_ids,omitempty"`
	IncludeIncome  bool     `json:"include_income"`
	IncludeExpense bool     `json:"include_expense"`
}

// ForecastLine is the projection for a single category.
type ForecastLine struct {
	CategoryID          string `json:"category_id"`
	CategoryName        string `json:"category_name"`
	MonthlyAverageCents int64  `json:"monthly_average_cents"`
	ProjectedTotalCents int64  `json:"projected_total_cents"`
}

// Forecast is the computed projection returned to callers and memoized in the
// forecast cache.
type Forecast struct {
	UserID            string         `json:"user_id"`
	HorizonMonths     int            `json:"horizon_months"`
	GeneratedAt       time.Time      `json:"generated_at"`
	NetPerMonthCents  int64          `json:"net_per_month_cents"`
	ProjectedNetCents int64          `json:"projected_net_cents"`
	Lines             []ForecastLine `json:"lines"`
}
