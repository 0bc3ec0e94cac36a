package port

import (
	"context"

	"github.com/fk00750/authguard/internal/core/domain"
)

// UserRepository exposes the persistence behavior the credential engine needs
// for identities. Listing, filtering and pagination stay outside the core.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
}
