package port

import (
	"context"
	"time"

	"github.com/fk00750/authguard/internal/core/domain"
)

// OTPRepository persists outstanding two-factor challenges.
type OTPRepository interface {
	// Create stores a challenge for the user with the given logical TTL.
	// Returns repository.ErrConflict while an unexpired challenge exists.
	Create(ctx context.Context, userID, code string, ttl time.Duration) (*domain.OTPChallenge, error)
	// Consume looks up a challenge by code and removes it whatever the
	// caller decides afterwards; a challenge is single use. Returns
	// repository.ErrNotFound when no challenge matches the code.
	Consume(ctx context.Context, code string) (*domain.OTPChallenge, error)
}
