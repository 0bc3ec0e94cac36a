package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	)
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt)
	return nil
}

func (p *StubPublisher) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	p.logEvent("auth.user.verified", event.UserID, event.VerifiedAt)
	return nil
}

func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logEvent("auth.user.logged_in", event.UserID, event.AuthenticatedAt)
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.user.password.changed", event.UserID, event.ChangedAt)
	return nil
}

func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent("auth.user.password.reset_requested", event.UserID, event.RequestedAt)
	return nil
}

func (p *StubPublisher) PublishTwoFactorToggled(_ context.Context, event domain.TwoFactorToggledEvent) error {
	p.logEvent("auth.user.two_factor.toggled", event.UserID, event.ToggledAt)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
