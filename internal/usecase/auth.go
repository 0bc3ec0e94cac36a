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

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified indicates the account exists but its email was never confirmed.
	ErrNotVerified = errors.New("account is not verified")
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRefreshToken indicates the presented refresh token is unknown,
	// already rotated away or marked invalid.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the presented refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
)

const (
	otpCodeLength = 6
	// Retries before giving up when freshly generated codes keep colliding
	// with live challenges held by other users.
	maxOTPCodeAttempts = 5
)

// AuthService coordinates login, refresh rotation and logout against the
// refresh token ledger.
type AuthService struct {
	users  port.UserRepository
	tokens port.TokenRepository
	otps   port.OTPRepository
	hasher port.CredentialHasher
	issuer *security.TokenIssuer
	mailer port.MailSender
	events port.EventPublisher
	logger *zap.Logger
	otpTTL time.Duration
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	tokens port.TokenRepository,
	otps port.OTPRepository,
	hasher port.CredentialHasher,
	issuer *security.TokenIssuer,
	mailer port.MailSender,
	events port.EventPublisher,
	log *zap.Logger,
	otpTTL time.Duration,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if otpTTL <= 0 {
		otpTTL = 15 * time.Minute
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		otps:   otps,
		hasher: hasher,
		issuer: issuer,
		mailer: mailer,
		events: events,
		logger: log,
		otpTTL: otpTTL,
		now:    time.Now,
	}
}

// WithClock overrides the service clock, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// LoginResult is what a successful credential check produces: either a token
// pair, or notice that a second factor stands between the caller and one.
type LoginResult struct {
	Tokens           *domain.TokenPair
	TwoFactorPending bool
	ChallengeExpires time.Time
}

// Login validates credentials and either issues a token pair or, for
// accounts with the second factor enabled, mails a one-time code and issues
// nothing.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, user.ID, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrNotVerified
	}

	if user.TwoFactorEnabled {
		challenge, err := s.startChallenge(ctx, user)
		if err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorPending: true, ChallengeExpires: challenge.ExpiresAt}, nil
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publishLogin(ctx, user, false)

	return &LoginResult{Tokens: pair}, nil
}

// IssuePair mints an access and refresh token for the user and records the
// refresh token in the ledger, displacing any prior one.
func (s *AuthService) IssuePair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, err := s.issuer.IssueAccess(user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, expiresAt, err := s.issuer.IssueRefresh(user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refresh),
		Status:    domain.RefreshTokenValid,
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiresAt,
	}

	if err := s.tokens.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates the presented refresh token: the ledger record it names is
// replaced by a fresh one, and a new pair is returned. Whatever else the
// owner held is displaced; the presented token itself never survives.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrInvalidRefreshToken
	}

	oldHash := security.HashToken(presented)

	record, err := s.tokens.GetByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := s.now().UTC()
	if record.Status != domain.RefreshTokenValid {
		return nil, ErrInvalidRefreshToken
	}
	if record.IsExpired(now) {
		// Expired tokens are rejected without touching the ledger.
		return nil, ErrExpiredRefreshToken
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup token owner: %w", err)
	}

	access, err := s.issuer.IssueAccess(user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, expiresAt, err := s.issuer.IssueRefresh(user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	replacement := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refresh),
		Status:    domain.RefreshTokenValid,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := s.tokens.Replace(ctx, oldHash, replacement); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent rotation redeemed the token first.
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout removes the presented refresh token from the ledger. Presenting a
// token that is not there is an error, not a no-op.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return ErrInvalidRefreshToken
	}

	if err := s.tokens.DeleteByHash(ctx, security.HashToken(presented)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

func (s *AuthService) startChallenge(ctx context.Context, user *domain.User) (*domain.OTPChallenge, error) {
	var (
		code      string
		challenge *domain.OTPChallenge
	)
	// A six digit code can collide with another user's live challenge;
	// regenerate until the store accepts it.
	for attempt := 0; ; attempt++ {
		var err error
		code, err = security.GenerateNumericCode(otpCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate otp code: %w", err)
		}

		challenge, err = s.otps.Create(ctx, user.ID, code, s.otpTTL)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrOTPPending
		}
		if errors.Is(err, repository.ErrCodeTaken) && attempt < maxOTPCodeAttempts-1 {
			continue
		}
		return nil, fmt.Errorf("store otp challenge: %w", err)
	}

	mail := port.Mail{
		To:      user.Email,
		Subject: "Your login verification code",
		Heading: "Two-factor verification",
		Body:    fmt.Sprintf("Your one-time code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes())),
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return nil, fmt.Errorf("send otp mail: %w", err)
	}

	s.logger.Info("otp challenge issued",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return challenge, nil
}

func (s *AuthService) publishLogin(ctx context.Context, user *domain.User, twoFactorUsed bool) {
	if s.events == nil {
		return
	}
	event := domain.UserLoggedInEvent{
		EventID:         uuid.NewString(),
		UserID:          user.ID,
		Role:            string(user.Role),
		TwoFactorUsed:   twoFactorUsed,
		AuthenticatedAt: s.now().UTC(),
	}
	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil {
		s.logger.Warn("publish login event failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}
