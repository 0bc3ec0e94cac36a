package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	Role         string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserVerifiedEvent represents the payload for auth.user.verified messages.
type UserVerifiedEvent struct {
	EventID    string
	UserID     string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// UserLoggedInEvent represents the payload for auth.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID         string
	UserID          string
	Role            string
	TwoFactorUsed   bool
	AuthenticatedAt time.Time
	Metadata        map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// TwoFactorToggledEvent represents the payload for auth.user.two_factor.toggled messages.
type TwoFactorToggledEvent struct {
	EventID   string
	UserID    string
	Enabled   bool
	ToggledAt time.Time
	Metadata  map[string]any
}
