package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishEntryChanged logs finance.entry.changed events.
func (p *StubPublisher) PublishEntryChanged(_ context.Context, event domain.EntryChangedEvent) error {
	p.logEvent(eventEntryChanged, event.UserID, event.OccurredAt, event)
	return nil
}

// PublishUserLoggedIn logs finance.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logEvent(eventUserLoggedIn, event.UserID, event.LoggedAt, event)
	return nil
}

// PublishLoginBlocked logs finance.login.blocked events.
func (p *StubPublisher) PublishLoginBlocked(_ context.Context, event domain.LoginBlockedEvent) error {
	p.logEvent(eventLoginBlocked, "", event.BlockedAt, event)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
