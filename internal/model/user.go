package model

import (
	"strings"
	"time"
)

// Role is the closed set of account kinds.  The value is carried verbatim in
// the JWT "role" claim.
type Role string

const (
	RoleOrganizer Role = "ORGANIZER" // books venues for events
	RoleVendor    Role = "VENDOR"    // lists and manages venues
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleOrganizer, RoleVendor:
		return r, true
	}
	return "", false
}

// User represents an application user record as stored in the `users`
// table.  Handlers define their own response shapes.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, lower-cased)
	PasswordHash string    // users.password_hash (bcrypt)
	Role         Role      // users.role
	Phone        string    // users.phone
	Address      string    // users.address
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
