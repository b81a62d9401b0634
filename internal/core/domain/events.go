package domain

import "time"

// EntryChangedEvent is emitted whenever an entry is created, updated, or
// deleted. Consumers use it to refresh downstream aggregates.
type EntryChangedEvent struct {
	EntryID    string         `json:"entry_id"`
	UserID     string         `json:"user_id"`
	CategoryID string         `json:"category_id"`
	Action     string         `json:"action"` // created | updated | deleted
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// UserLoggedInEvent is emitted after a successful authentication.
type UserLoggedInEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	LoggedAt  time.Time `json:"logged_at"`
}

// LoginBlockedEvent is emitted when the attempt tracker rejects a login
// before credentials are checked.
type LoginBlockedEvent struct {
	TrackingKey  string        `json:"tracking_key"`
	RemainingFor time.Duration `json:"remaining_for"`
	BlockedAt    time.Time     `json:"blocked_at"`
}
