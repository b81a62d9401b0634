package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	eventEntryChanged = "entry.changed"
	eventUserLoggedIn = "user.logged_in"
	eventLoginBlocked = "login.blocked"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishEntryChanged emits finance.entry.changed events.
func (p *EventPublisher) PublishEntryChanged(ctx context.Context, event domain.EntryChangedEvent) error {
	return p.publish(ctx, eventEntryChanged, event.UserID, event.OccurredAt, event)
}

// PublishUserLoggedIn emits finance.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	return p.publish(ctx, eventUserLoggedIn, event.UserID, event.LoggedAt, event)
}

// PublishLoginBlocked emits finance.login.blocked events. The tracking key
// arrives pre-masked; raw identifiers never leave the throttle layer.
func (p *EventPublisher) PublishLoginBlocked(ctx context.Context, event domain.LoginBlockedEvent) error {
	return p.publish(ctx, eventLoginBlocked, "", event.BlockedAt, event)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
