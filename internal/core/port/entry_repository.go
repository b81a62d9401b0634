package port

import (
	"context"
	"time"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
)

// EntryFilter narrows entry listings.
type EntryFilter struct {
	CategoryID string
	Kind       domain.EntryKind
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// EntryRepository persists financial entries.
type EntryRepository interface {
	Create(ctx context.Context, entry domain.Entry) error
	Update(ctx context.Context, entry domain.Entry) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ListByUser(ctx context.Context, userID string, filter EntryFilter) ([]domain.Entry, error)
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]domain.Entry, error)
}

// CategoryRepository persists entry categories.
type CategoryRepository interface {
	Create(ctx context.Context, category domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Category, error)
}
