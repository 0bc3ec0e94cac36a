package port

import (
	"context"

	"github.com/fk00750/authguard/internal/core/domain"
)

// EventPublisher publishes security events to the message bus. Delivery is
// best effort; publish failures never unwind credential state.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishTwoFactorToggled(ctx context.Context, event domain.TwoFactorToggledEvent) error
}
