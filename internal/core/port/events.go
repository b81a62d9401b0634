package port

import (
	"context"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
)

// EventPublisher dispatches domain events to the message broker. Publish
// failures must not abort the business flow that raised the event.
type EventPublisher interface {
	PublishEntryChanged(ctx context.Context, event domain.EntryChangedEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishLoginBlocked(ctx context.Context, event domain.LoginBlockedEvent) error
}
