package models

import (
	"time"

	"github.com/google/uuid"
)

// UserType represents the role of a platform user
type UserType string

const (
	UserTypeCreator UserType = "creator"
	UserTypeAdmin   UserType = "admin"
)

// User represents a platform user. Only the fields the payout engine
// reads are modeled here; profile data lives with the excluded UI services.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	UserType  UserType  `json:"user_type" db:"user_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
