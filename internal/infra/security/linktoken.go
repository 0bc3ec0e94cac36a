package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLinkTokenTTL bounds how long an emailed verification or reset link
// stays redeemable.
const DefaultLinkTokenTTL = 15 * time.Minute

// LinkClaims is the payload embedded in email-verification and
// password-reset links.
type LinkClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// LinkSigner signs and verifies short-lived link tokens with a per-user
// rotating secret (HS256). The secret is regenerated on every new request,
// so a freshly issued link implicitly invalidates all prior ones for the
// same user.
type LinkSigner struct {
	ttl time.Duration
	now func() time.Time
}

// NewLinkSigner constructs a LinkSigner. A zero TTL falls back to the default.
func NewLinkSigner(ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = DefaultLinkTokenTTL
	}
	return &LinkSigner{ttl: ttl, now: time.Now}
}

// WithClock overrides the signer clock. For tests.
func (s *LinkSigner) WithClock(clock func() time.Time) *LinkSigner {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Sign produces a link token for the user, bound to the given secret.
func (s *LinkSigner) Sign(secret, userID, email string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("signing secret is required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := s.now().UTC()
	claims := LinkClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign link token: %w", err)
	}

	return signed, nil
}

// Verify checks the token against the secret and returns its claims. A token
// signed with a rotated-away secret fails the signature check and surfaces
// as ErrTokenInvalid.
func (s *LinkSigner) Verify(secret, tokenString string) (*LinkClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("signing secret is required")
	}

	claims := &LinkClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
