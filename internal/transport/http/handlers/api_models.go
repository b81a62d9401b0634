package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error        string `json:"error"`
	TraceID      string `json:"trace_id,omitempty"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued access token and the user summary.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserSummary `json:"user"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Status    domain.UserStatus `json:"status"`
	LastLogin *time.Time        `json:"last_login,omitempty"`
}

// EntryRequest defines the payload for entry creation and update.
type EntryRequest struct {
	CategoryID  string    `json:"category_id" binding:"required"`
	Kind        string    `json:"kind" binding:"required"`
	AmountCents int64     `json:"amount_cents" binding:"required"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at" binding:"required"`
}

// EntryResponse is the API view of an entry.
type EntryResponse struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newEntryResponse(entry domain.Entry) EntryResponse {
	return EntryResponse{
		ID:          entry.ID,
		CategoryID:  entry.CategoryID,
		Kind:        string(entry.Kind),
		AmountCents: entry.AmountCents,
		Description: entry.Description,
		OccurredAt:  entry.OccurredAt,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

// CategoryRequest defines the payload for category creation.
type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

// CategoryResponse is the API view of a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// ForecastResponse is the API view of a computed forecast.
type ForecastResponse struct {
	HorizonMonths     int                    `json:"horizon_months"`
	GeneratedAt       time.Time              `json:"generated_at"`
	NetPerMonthCents  int64                  `json:"net_per_month_cents"`
	ProjectedNetCents int64                  `json:"projected_net_cents"`
	Lines             []ForecastLineResponse `json:"lines"`
}

// ForecastLineResponse is a single category projection.
type ForecastLineResponse struct {
	CategoryID          string `json:"category_id"`
	CategoryName        string `json:"category_name,omitempty"`
	MonthlyAverageCents int64  `json:"monthly_average_cents"`
	ProjectedTotalCents int64  `json:"projected_total_cents"`
}
