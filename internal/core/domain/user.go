package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}
