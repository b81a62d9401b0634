package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

var (
	// ErrInvalidEntry indicates the entry payload failed validation.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrEntryNotFound indicates the entry does not exist or belongs to
	// another user.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrCategoryNotFound indicates the referenced category does not exist or
	// belongs to another user.
	ErrCategoryNotFound = errors.New("category not found")
)

// EntryInput carries the caller-editable fields of an entry.
type EntryInput struct {
	CategoryID  string
	Kind        domain.EntryKind
	AmountCents int64
	Description string
	OccurredAt  time.Time
}

// EntryService manages financial entries. Every mutation invalidates the
// owning user's cached forecasts and emits an entry.changed event.
type EntryService struct {
	entries    port.EntryRepository
	categories port.CategoryRepository
	forecasts  port.ForecastCache
	events     port.EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

// NewEntryService constructs an EntryService. events may be nil.
func NewEntryService(
	entries port.EntryRepository,
	categories port.CategoryRepository,
	forecasts port.ForecastCache,
	events port.EventPublisher,
	log *zap.Logger,
) *EntryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EntryService{
		entries:    entries,
		categories: categories,
		forecasts:  forecasts,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *EntryService) WithClock(now func() time.Time) *EntryService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates and persists a new entry for the user.
func (s *EntryService) Create(ctx context.Context, userID string, input EntryInput) (*domain.Entry, error) {
	if err := s.validate(ctx, userID, input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := domain.Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Kind:        input.Kind,
		AmountCents: input.AmountCents,
		Description: strings.TrimSpace(input.Description),
		OccurredAt:  input.OccurredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.afterMutation(ctx, entry, "created")
	return &entry, nil
}

// Update replaces the editable fields of an existing entry owned by the user.
func (s *EntryService) Update(ctx context.Context, userID, entryID string, input EntryInput) (*domain.Entry, error) {
	if err := s.validate(ctx, userID, input); err != nil {
		return nil, err
	}

	existing, err := s.getOwned(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.CategoryID = input.CategoryID
	updated.Kind = input.Kind
	updated.AmountCents = input.AmountCents
	updated.Description = strings.TrimSpace(input.Description)
	updated.OccurredAt = input.OccurredAt
	updated.UpdatedAt = s.now().UTC()

	if err := s.entries.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.afterMutation(ctx, updated, "updated")
	return &updated, nil
}

// Delete removes an entry owned by the user.
func (s *EntryService) Delete(ctx context.Context, userID, entryID string) error {
	existing, err := s.getOwned(ctx, userID, entryID)
	if err != nil {
		return err
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	s.afterMutation(ctx, *existing, "deleted")
	return nil
}

// Get returns a single entry owned by the user.
func (s *EntryService) Get(ctx context.Context, userID, entryID string) (*domain.Entry, error) {
	return s.getOwned(ctx, userID, entryID)
}

// List returns the user's entries, newest first, narrowed by the filter.
func (s *EntryService) List(ctx context.Context, userID string, filter port.EntryFilter) ([]domain.Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := s.entries.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// CreateCategory persists a new category for the user.
func (s *EntryService) CreateCategory(ctx context.Context, userID, name string, kind domain.EntryKind) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidEntry)
	}
	if kind != domain.EntryKindIncome && kind != domain.EntryKindExpense {
		return nil, fmt.Errorf("%w: kind must be income or expense", ErrInvalidEntry)
	}

	category := domain.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// ListCategories returns the user's categories.
func (s *EntryService) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	categories, err := s.categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *EntryService) validate(ctx context.Context, userID string, input EntryInput) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidEntry)
	}
	if input.Kind != domain.EntryKindIncome && input.Kind != domain.EntryKindExpense {
		return fmt.Errorf("%w: kind must be income or expense", ErrInvalidEntry)
	}
	if input.AmountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	if input.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", ErrInvalidEntry)
	}
	if input.CategoryID == "" {
		return fmt.Errorf("%w: category id is required", ErrInvalidEntry)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	if category.UserID != userID {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *EntryService) getOwned(ctx context.Context, userID, entryID string) (*domain.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry.UserID != userID {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// afterMutation drops the user's cached forecasts and emits the change
// event. Neither step can fail the mutation that already committed.
func (s *EntryService) afterMutation(ctx context.Context, entry domain.Entry, action string) {
	removed := s.forecasts.InvalidateUserCache(entry.UserID)
	if removed > 0 {
		s.log.Debug("forecast cache invalidated",
			zap.String("user_id", entry.UserID),
			zap.Int("removed", removed))
	}

	if s.events == nil {
		return
	}
	event := domain.EntryChangedEvent{
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		CategoryID: entry.CategoryID,
		Action:     action,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishEntryChanged(ctx, event); err != nil {
		s.log.Warn("publish entry changed event failed",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
	}
}
