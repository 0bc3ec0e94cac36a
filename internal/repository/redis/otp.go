package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/repository"
)

const (
	defaultOTPPrefix = "otp"

	fieldCode      = "code"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// Records outlive their logical expiry by this factor so a late verification
// attempt can tell an expired challenge apart from one that never existed.
const retentionFactor = 2

// OTPRepository persists two-factor challenges in Redis. Each challenge is a
// hash keyed by owner plus a code index entry pointing back at the owner, so
// Consume can look up by code alone.
type OTPRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewOTPRepository constructs a new OTP repository with the provided Redis client and key prefix.
func NewOTPRepository(client *red.Client, keyPrefix string) *OTPRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}

	return &OTPRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Create stores a challenge for the user. Returns repository.ErrConflict
// while an unexpired challenge for the same user exists; an expired leftover
// is silently replaced. Returns repository.ErrCodeTaken when another user's
// live challenge already holds the code, keeping codes unique store-wide.
func (r *OTPRepository) Create(ctx context.Context, userID, code string, ttl time.Duration) (*domain.OTPChallenge, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)

	switch {
	case userID == "":
		return nil, errors.New("user id is required")
	case code == "":
		return nil, errors.New("code is required")
	case ttl <= 0:
		return nil, errors.New("ttl must be positive")
	}

	now := r.now().UTC()

	existing, err := r.fetch(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if !existing.IsExpired(now) {
			return nil, repository.ErrConflict
		}
		if err := r.remove(ctx, existing); err != nil {
			return nil, err
		}
	}

	owner, err := r.client.Get(ctx, r.codeKey(code)).Result()
	if err != nil && !errors.Is(err, red.Nil) {
		return nil, fmt.Errorf("redis get otp index: %w", err)
	}
	if err == nil && owner != userID {
		other, err := r.fetch(ctx, owner)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if other != nil && other.Code == code {
			return nil, repository.ErrCodeTaken
		}
		// Index entry with no backing challenge; safe to overwrite.
	}

	expiresAt := now.Add(ttl)
	retention := ttl * retentionFactor

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.userKey(userID), map[string]any{
		fieldCode:      code,
		fieldCreatedAt: strconv.FormatInt(now.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(expiresAt.Unix(), 10),
	})
	pipe.Expire(ctx, r.userKey(userID), retention)
	pipe.Set(ctx, r.codeKey(code), userID, retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis store otp: %w", err)
	}

	return &domain.OTPChallenge{
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// Consume looks up a challenge by code and removes it. The challenge is
// returned even when logically expired; callers decide how to report that.
// Returns repository.ErrNotFound when no challenge matches the code.
func (r *OTPRepository) Consume(ctx context.Context, code string) (*domain.OTPChallenge, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("code is required")
	}

	userID, err := r.client.Get(ctx, r.codeKey(code)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get otp index: %w", err)
	}

	challenge, err := r.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Stale index entry left behind by a replaced challenge.
	if challenge.Code != code {
		if err := r.client.Del(ctx, r.codeKey(code)).Err(); err != nil {
			return nil, fmt.Errorf("redis delete stale otp index: %w", err)
		}
		return nil, repository.ErrNotFound
	}

	if err := r.remove(ctx, challenge); err != nil {
		return nil, err
	}

	return challenge, nil
}

// WithClock overrides the internal clock, used in tests.
func (r *OTPRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *OTPRepository) fetch(ctx context.Context, userID string) (*domain.OTPChallenge, error) {
	values, err := r.client.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall otp: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &domain.OTPChallenge{
		UserID:    userID,
		Code:      strings.TrimSpace(values[fieldCode]),
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (r *OTPRepository) remove(ctx context.Context, challenge *domain.OTPChallenge) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.userKey(challenge.UserID))
	pipe.Del(ctx, r.codeKey(challenge.Code))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

func (r *OTPRepository) codeKey(code string) string {
	return fmt.Sprintf("%s:code:%s", r.prefix, code)
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}

var _ port.OTPRepository = (*OTPRepository)(nil)
