package port

import (
	"context"
	"time"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
