package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/repository"
)

var (
	// ErrOTPPending indicates an unexpired challenge already exists for the user.
	ErrOTPPending = errors.New("verification code already sent")
	// ErrOTPInvalid indicates no outstanding challenge matches the code.
	ErrOTPInvalid = errors.New("invalid verification code")
	// ErrOTPExpired indicates the challenge existed but its window elapsed.
	ErrOTPExpired = errors.New("verification code expired")
)

// TwoFactorService completes logins gated on a one-time code and toggles the
// second factor on and off.
type TwoFactorService struct {
	users  port.UserRepository
	otps   port.OTPRepository
	auth   *AuthService
	events port.EventPublisher
	logger *zap.Logger
}

// NewTwoFactorService constructs a TwoFactorService instance.
func NewTwoFactorService(
	users port.UserRepository,
	otps port.OTPRepository,
	auth *AuthService,
	events port.EventPublisher,
	log *zap.Logger,
) *TwoFactorService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TwoFactorService{
		users:  users,
		otps:   otps,
		auth:   auth,
		events: events,
		logger: log,
	}
}

// VerifyCode consumes the challenge matching the code and, when it is still
// inside its window, issues the token pair the gated login withheld. The
// challenge is gone after the first attempt either way.
func (s *TwoFactorService) VerifyCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrOTPInvalid
	}

	challenge, err := s.otps.Consume(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("consume otp challenge: %w", err)
	}

	if challenge.IsExpired(s.auth.now().UTC()) {
		return nil, ErrOTPExpired
	}

	user, err := s.users.GetByID(ctx, challenge.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("lookup challenge owner: %w", err)
	}

	pair, err := s.auth.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auth.publishLogin(ctx, user, true)

	return pair, nil
}

// Toggle flips the second factor requirement for the user and returns the
// new state. Only verified accounts may carry a second factor.
func (s *TwoFactorService) Toggle(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("lookup user: %w", err)
	}

	if !user.Verified {
		return false, ErrNotVerified
	}

	enabled := !user.TwoFactorEnabled
	if err := s.users.SetTwoFactorEnabled(ctx, user.ID, enabled); err != nil {
		return false, fmt.Errorf("toggle two factor: %w", err)
	}

	if s.events != nil {
		event := domain.TwoFactorToggledEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Enabled:   enabled,
			ToggledAt: s.auth.now().UTC(),
		}
		if err := s.events.PublishTwoFactorToggled(ctx, event); err != nil {
			s.logger.Warn("publish two factor event failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return enabled, nil
}
