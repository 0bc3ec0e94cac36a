package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/infra/logger"
	"github.com/fk00750/authguard/internal/infra/security"
	"github.com/fk00750/authguard/internal/repository"
)

const resetKeyBytes = 32

var (
	// ErrResetKeyInvalid indicates the reset key is unknown or its link was
	// never confirmed.
	ErrResetKeyInvalid = errors.New("invalid reset key")
	// ErrResetKeyExpired indicates the confirmed key's redemption window elapsed.
	ErrResetKeyExpired = errors.New("reset key expired")
)

// PasswordService handles the forgotten-password exchange and authenticated
// password changes.
type PasswordService struct {
	users       port.UserRepository
	tokens      port.TokenRepository
	secrets     port.SecretRepository
	resetKeys   port.ResetKeyRepository
	hasher      port.CredentialHasher
	signer      *security.LinkSigner
	mailer      port.MailSender
	events      port.EventPublisher
	logger      *zap.Logger
	baseURL     string
	resetKeyTTL time.Duration
	now         func() time.Time
}

// NewPasswordService constructs a PasswordService instance.
func NewPasswordService(
	users port.UserRepository,
	tokens port.TokenRepository,
	secrets port.SecretRepository,
	resetKeys port.ResetKeyRepository,
	hasher port.CredentialHasher,
	signer *security.LinkSigner,
	mailer port.MailSender,
	events port.EventPublisher,
	log *zap.Logger,
	baseURL string,
	resetKeyTTL time.Duration,
) *PasswordService {
	if log == nil {
		log = zap.NewNop()
	}
	if resetKeyTTL <= 0 {
		resetKeyTTL = 5 * time.Minute
	}
	return &PasswordService{
		users:       users,
		tokens:      tokens,
		secrets:     secrets,
		resetKeys:   resetKeys,
		hasher:      hasher,
		signer:      signer,
		mailer:      mailer,
		events:      events,
		logger:      log,
		baseURL:     strings.TrimRight(baseURL, "/"),
		resetKeyTTL: resetKeyTTL,
		now:         time.Now,
	}
}

// WithClock overrides the service clock, used in tests.
func (s *PasswordService) WithClock(clock func() time.Time) *PasswordService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RequestReset starts the forgotten-password exchange for a verified
// account: a fresh link secret signs a confirmation link, and an unverified
// reset key is put on file awaiting that confirmation.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !user.Verified {
		return ErrNotVerified
	}

	now := s.now().UTC()

	keyValue, err := security.GenerateSecret(resetKeyBytes)
	if err != nil {
		return fmt.Errorf("generate reset key: %w", err)
	}
	if err := s.resetKeys.Upsert(ctx, domain.ResetKey{
		UserID:    user.ID,
		Value:     keyValue,
		Verified:  false,
		ExpiresAt: now.Add(s.resetKeyTTL),
	}); err != nil {
		return fmt.Errorf("store reset key: %w", err)
	}

	secret, err := security.GenerateSecret(linkSecretBytes)
	if err != nil {
		return fmt.Errorf("generate link secret: %w", err)
	}
	if err := s.secrets.Upsert(ctx, domain.LinkSecret{
		UserID:    user.ID,
		Secret:    secret,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("store link secret: %w", err)
	}

	token, err := s.signer.Sign(secret, user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("sign reset link: %w", err)
	}

	link := fmt.Sprintf("%s/api/v1/password/confirm/%s/%s", s.baseURL, user.ID, token)
	mail := port.Mail{
		To:      user.Email,
		Subject: "Reset your password",
		Heading: "Password reset",
		Body:    "Follow the link below to continue resetting your password.",
		Link:    link,
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:           uuid.NewString(),
			UserID:            user.ID,
			RequestedAt:       now,
			MaskedDestination: logger.MaskEmail(user.Email),
			ExpiresAt:         now.Add(s.resetKeyTTL),
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			s.logger.Warn("publish reset requested event failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}

// ConfirmResetLink consumes the emailed link, marks the stored reset key
// verified with a fresh redemption window, and returns the key value the
// client must present to ResetPassword.
func (s *PasswordService) ConfirmResetLink(ctx context.Context, userID, token string) (string, error) {
	if _, err := consumeLink(ctx, s.secrets, s.signer, userID, token); err != nil {
		return "", err
	}

	key, err := s.resetKeys.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrResetKeyInvalid
		}
		return "", fmt.Errorf("lookup reset key: %w", err)
	}

	if err := s.resetKeys.MarkVerified(ctx, userID, s.now().UTC().Add(s.resetKeyTTL)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrResetKeyInvalid
		}
		return "", fmt.Errorf("mark reset key verified: %w", err)
	}

	return key.Value, nil
}

// ResetPassword exchanges a confirmed reset key for a password change. The
// key must have had its link confirmed, be inside its redemption window and
// belong to a verified account; it is deleted once the password changes.
func (s *PasswordService) ResetPassword(ctx context.Context, keyValue, newPassword string) error {
	keyValue = strings.TrimSpace(keyValue)
	if keyValue == "" {
		return ErrResetKeyInvalid
	}
	if newPassword == "" {
		return fmt.Errorf("password is required")
	}

	key, err := s.resetKeys.GetByValue(ctx, keyValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetKeyInvalid
		}
		return fmt.Errorf("lookup reset key: %w", err)
	}

	if !key.Verified {
		return ErrResetKeyInvalid
	}
	if key.IsExpired(s.now().UTC()) {
		return ErrResetKeyExpired
	}

	user, err := s.users.GetByID(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.Verified {
		return ErrNotVerified
	}

	if err := s.changePassword(ctx, user, newPassword, "reset"); err != nil {
		return err
	}

	if err := s.resetKeys.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete reset key: %w", err)
	}

	return nil
}

// UpdatePassword changes the password of an authenticated principal after
// re-verifying the current one.
func (s *PasswordService) UpdatePassword(ctx context.Context, userID, current, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("password is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, user.ID, current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	return s.changePassword(ctx, user, newPassword, "update")
}

// changePassword rehashes, persists and revokes every outstanding refresh
// token so stolen sessions do not survive the change.
func (s *PasswordService) changePassword(ctx context.Context, user *domain.User, newPassword, reason string) error {
	hash, err := s.hasher.Hash(ctx, user.ID, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	if err := s.tokens.DeleteForUser(ctx, user.ID); err != nil {
		s.logger.Warn("revoke refresh tokens failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			ChangedAt: s.now().UTC(),
			Reason:    reason,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}
