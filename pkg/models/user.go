package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleMechanic   = "mechanic"
	RoleDispatcher = "dispatcher"
)

// User belongs to exactly one tenant. Emails are unique per tenant at
// the schema level, but registration additionally enforces global
// uniqueness so login can resolve a user from email alone.
type User struct {
	ID            uuid.UUID  `db:"id"              json:"id"`
	TenantID      uuid.UUID  `db:"tenant_id"       json:"tenant_id"`
	Email         string     `db:"email"           json:"email"`
	PasswordHash  string     `db:"password_hash"   json:"-"`
	Role          string     `db:"role"            json:"role"`
	FullName      string     `db:"full_name"       json:"full_name"`
	Phone         *string    `db:"phone"           json:"phone,omitempty"`
	IsActive      bool       `db:"is_active"       json:"is_active"`
	EmailVerified bool       `db:"email_verified"  json:"email_verified"`
	LastLoginAt   *time.Time `db:"last_login_at"   json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"      json:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"      json:"-"`
}

// RefreshToken is a persisted, revocable refresh credential. The token
// column stores the signed JWT so logout can revoke it server-side.
type RefreshToken struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Token     string    `db:"token"      json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Revoked   bool      `db:"revoked"    json:"revoked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
