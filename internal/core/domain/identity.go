package domain

import "time"

// Role enumerates the two principal audiences the service signs tokens for.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the two known audiences.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	Role             Role
	Verified         bool
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Pepper is the per-identity server-side secret mixed into every password
// hash for that identity. It is generated once and never rotated: rotating it
// would invalidate every hash produced with it without a migration path.
type Pepper struct {
	UserID    string
	Value     string
	CreatedAt time.Time
}
