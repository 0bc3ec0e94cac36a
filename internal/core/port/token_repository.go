package port

import (
	"context"
	"time"

	"github.com/fk00750/authguard/internal/core/domain"
)

// TokenRepository is the refresh token ledger. The single-active-token
// invariant lives here: Put and Replace atomically remove every other record
// owned by the same principal before inserting the new one, so no two
// operations for the same owner can observe a half-updated ledger.
type TokenRepository interface {
	// Put removes any existing records for the owner and inserts the record.
	Put(ctx context.Context, token domain.RefreshToken) error
	// GetByHash retrieves a ledger record by token hash.
	// Returns repository.ErrNotFound when no record matches.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Replace deletes the record identified by oldHash together with every
	// other record of the same owner, then inserts the replacement, all in
	// one transaction. Returns repository.ErrNotFound when oldHash no longer
	// identifies a record, which is how the loser of a concurrent rotation
	// observes that the token was already redeemed.
	Replace(ctx context.Context, oldHash string, token domain.RefreshToken) error
	// DeleteByHash removes the record. Returns repository.ErrNotFound when
	// nothing was deleted; logout is deliberately not idempotent-success.
	DeleteByHash(ctx context.Context, tokenHash string) error
	// DeleteForUser removes every record owned by the user. Deleting for a
	// user with no records is not an error.
	DeleteForUser(ctx context.Context, userID string) error
}

// PepperRepository stores the immutable per-identity peppers.
type PepperRepository interface {
	// Get returns repository.ErrNotFound when the identity has no pepper.
	Get(ctx context.Context, userID string) (*domain.Pepper, error)
	// Create inserts a pepper. An identity only ever gets one.
	Create(ctx context.Context, pepper domain.Pepper) error
}

// SecretRepository stores the rotating per-user link-signing secrets.
type SecretRepository interface {
	// Upsert replaces any existing secret for the user, invalidating every
	// link signed with the previous value.
	Upsert(ctx context.Context, secret domain.LinkSecret) error
	// Get returns repository.ErrNotFound when the user has no outstanding secret.
	Get(ctx context.Context, userID string) (*domain.LinkSecret, error)
	// Delete removes the secret once its link has been consumed.
	Delete(ctx context.Context, userID string) error
}

// ResetKeyRepository stores the single-use password reset exchange keys.
type ResetKeyRepository interface {
	// Upsert replaces any existing key for the user.
	Upsert(ctx context.Context, key domain.ResetKey) error
	// GetByUser returns repository.ErrNotFound when the user has no key.
	GetByUser(ctx context.Context, userID string) (*domain.ResetKey, error)
	// GetByValue returns repository.ErrNotFound when no key matches.
	GetByValue(ctx context.Context, value string) (*domain.ResetKey, error)
	// MarkVerified flips the verified flag after a successful link click and
	// stamps the redemption window the key must be exchanged within.
	MarkVerified(ctx context.Context, userID string, expiresAt time.Time) error
	// Delete removes the key once the password has been changed.
	Delete(ctx context.Context, userID string) error
}
