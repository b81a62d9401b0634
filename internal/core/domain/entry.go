package domain

import "time"

// EntryKind distinguishes income from expense entries.
type EntryKind string

const (
	EntryKindIncome  EntryKind = "income"
	EntryKindExpense EntryKind = "expense"
)

// Entry represents a single financial movement belonging to a user.
// Amount is stored in cents to avoid floating point drift.
type Entry struct {
	ID          string
	UserID      string
	CategoryID  string
	Kind        EntryKind
	AmountCents int64
	Description string
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SignedAmountCents returns the amount with expenses negated, so that sums
// over a window yield the net balance movement.
func (e Entry) SignedAmountCents() int64 {
	if e.Kind == EntryKindExpense {
		return -e.AmountCents
	}
	return e.AmountCents
}

// Category groups entries for reporting and forecasting.
type Category struct {
	ID        string
	UserID    string
	Name      string
	Kind      EntryKind
	CreatedAt time.Time
}
