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

const linkSecretBytes = 32

var (
	// ErrEmailTaken indicates an account with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrLinkInvalid indicates the emailed link failed verification, usually
	// because a newer link rotated its signing secret away.
	ErrLinkInvalid = errors.New("invalid link")
	// ErrLinkExpired indicates the emailed link is past its window.
	ErrLinkExpired = errors.New("link expired")
)

// RegistrationService handles new account onboarding and email confirmation.
type RegistrationService struct {
	users   port.UserRepository
	secrets port.SecretRepository
	hasher  port.CredentialHasher
	signer  *security.LinkSigner
	mailer  port.MailSender
	events  port.EventPublisher
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	users port.UserRepository,
	secrets port.SecretRepository,
	hasher port.CredentialHasher,
	signer *security.LinkSigner,
	mailer port.MailSender,
	events port.EventPublisher,
	log *zap.Logger,
	baseURL string,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		users:   users,
		secrets: secrets,
		hasher:  hasher,
		signer:  signer,
		mailer:  mailer,
		events:  events,
		logger:  log,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock overrides the service clock, used in tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register creates an unverified account and mails a signed verification
// link. The link's signing secret is minted fresh, so re-registering resends
// a link that invalidates any earlier one.
func (s *RegistrationService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	switch {
	case username == "":
		return nil, fmt.Errorf("username is required")
	case email == "":
		return nil, fmt.Errorf("email is required")
	case password == "":
		return nil, fmt.Errorf("password is required")
	}

	now := s.now().UTC()
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	hash, err := s.hasher.Hash(ctx, user.ID, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerificationLink(ctx, &user); err != nil {
		return nil, err
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			Role:         string(user.Role),
			RegisteredAt: now,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish registration event failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return &user, nil
}

// VerifyEmail consumes a verification link and marks the account verified.
// The link secret is deleted on success; clicking the link twice fails.
func (s *RegistrationService) VerifyEmail(ctx context.Context, userID, token string) error {
	claims, err := consumeLink(ctx, s.secrets, s.signer, userID, token)
	if err != nil {
		return err
	}

	if err := s.users.SetVerified(ctx, userID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set verified: %w", err)
	}

	if s.events != nil {
		event := domain.UserVerifiedEvent{
			EventID:    uuid.NewString(),
			UserID:     userID,
			Email:      claims.Email,
			VerifiedAt: s.now().UTC(),
		}
		if err := s.events.PublishUserVerified(ctx, event); err != nil {
			s.logger.Warn("publish verification event failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return nil
}

// sendVerificationLink rotates the user's link secret and mails a fresh link.
func (s *RegistrationService) sendVerificationLink(ctx context.Context, user *domain.User) error {
	secret, err := security.GenerateSecret(linkSecretBytes)
	if err != nil {
		return fmt.Errorf("generate link secret: %w", err)
	}

	if err := s.secrets.Upsert(ctx, domain.LinkSecret{
		UserID:    user.ID,
		Secret:    secret,
		UpdatedAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("store link secret: %w", err)
	}

	token, err := s.signer.Sign(secret, user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("sign verification link: %w", err)
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify-email/%s/%s", s.baseURL, user.ID, token)
	mail := port.Mail{
		To:      user.Email,
		Subject: "Confirm your email address",
		Heading: "Email verification",
		Body:    "Follow the link below to confirm your email address.",
		Link:    link,
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	return nil
}

// consumeLink verifies a signed link token against the user's current secret
// and deletes the secret so the link cannot be replayed.
func consumeLink(ctx context.Context, secrets port.SecretRepository, signer *security.LinkSigner, userID, token string) (*security.LinkClaims, error) {
	record, err := secrets.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLinkInvalid
		}
		return nil, fmt.Errorf("lookup link secret: %w", err)
	}

	claims, err := signer.Verify(record.Secret, token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrLinkExpired
		}
		return nil, ErrLinkInvalid
	}

	if claims.UserID != userID {
		return nil, ErrLinkInvalid
	}

	if err := secrets.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete link secret: %w", err)
	}

	return claims, nil
}
