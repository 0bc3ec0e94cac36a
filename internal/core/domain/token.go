package domain

import "time"

// RefreshTokenStatus enumerates the ledger states of a stored refresh token.
type RefreshTokenStatus string

const (
	RefreshTokenValid   RefreshTokenStatus = "valid"
	RefreshTokenInvalid RefreshTokenStatus = "invalid"
)

// RefreshToken is the single currently-valid refresh credential for a
// principal. Tokens are stored as SHA-256 hashes; the raw JWT is only ever
// returned to the caller that requested issuance.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	Status    RefreshTokenStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsValid reports whether the token can still be presented for rotation.
func (t RefreshToken) IsValid(at time.Time) bool {
	return t.Status == RefreshTokenValid && !t.IsExpired(at)
}

// TokenPair bundles the two credentials returned by login, OTP verification
// and refresh rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LinkSecret is the rotating per-user signing key for email-verification and
// password-reset links. Every new request overwrites the previous value,
// invalidating any link signed with it.
type LinkSecret struct {
	UserID    string
	Secret    string
	UpdatedAt time.Time
}

// ResetKey is the one-time opaque token exchanged, after the emailed reset
// link has been confirmed, for permission to set a new password.
type ResetKey struct {
	UserID    string
	Value     string
	Verified  bool
	ExpiresAt time.Time
}

// IsExpired reports whether the reset key can still be redeemed.
func (k ResetKey) IsExpired(at time.Time) bool {
	return !k.ExpiresAt.After(at)
}

// OTPChallenge is an outstanding one-time passcode for a login attempt.
// At most one challenge exists per principal; a challenge is consumed on the
// first verification attempt that finds it, whatever the outcome.
type OTPChallenge struct {
	UserID    string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the challenge has elapsed its window.
func (c OTPChallenge) IsExpired(at time.Time) bool {
	return !c.ExpiresAt.After(at)
}
