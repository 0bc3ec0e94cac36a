package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fk00750/authguard/internal/core/domain"
)

const (
	// Access tokens expire fast to bound the blast radius of a stolen
	// token; refresh tokens run for a year, compensated by the ledger's
	// single-active-token invalidation.
	DefaultAccessTokenTTL  = 50 * time.Second
	DefaultRefreshTokenTTL = 365 * 24 * time.Hour
)

var (
	// ErrTokenInvalid indicates a malformed token or a failed signature check.
	ErrTokenInvalid = errors.New("security: invalid token")
	// ErrTokenExpired indicates the token was valid but is past its expiry.
	ErrTokenExpired = errors.New("security: token expired")
)

// TokenClaims is the payload carried by both access and refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer mints RS256 access and refresh tokens, selecting one of the
// four private keys by the principal's role and the token kind. It only
// signs; verification belongs to the bearer-token gates.
type TokenIssuer struct {
	keys       *KeySet
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer over the loaded key set. Zero TTLs
// fall back to the defaults.
func NewTokenIssuer(keys *KeySet, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenIssuer{keys: keys, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock overrides the issuer clock. For tests.
func (i *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		i.now = clock
	}
	return i
}

// IssueAccess signs a short-lived access token for the principal.
func (i *TokenIssuer) IssueAccess(role domain.Role, userID string) (string, error) {
	return i.issue(role, KindAccess, userID, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the principal and
// returns its expiry alongside, so the ledger can record it without decoding
// the token again.
func (i *TokenIssuer) IssueRefresh(role domain.Role, userID string) (string, time.Time, error) {
	expiresAt := i.now().UTC().Add(i.refreshTTL)
	signed, err := i.issue(role, KindRefresh, userID, i.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (i *TokenIssuer) issue(role domain.Role, kind TokenKind, userID string, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}

	key, err := i.keys.SigningKey(role, kind)
	if err != nil {
		return "", err
	}

	now := i.now().UTC()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The JTI makes every mint unique. Without it two tokens for the
			// same subject in the same second would serialize identically,
			// and the refresh ledger keys on the token's hash.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s/%s token: %w", role, kind, err)
	}

	return signed, nil
}

// TokenVerifier authenticates bearer tokens against the public halves of the
// key set. Used by transport middleware to resolve the calling principal
// before any engine operation runs.
type TokenVerifier struct {
	keys *KeySet
}

// NewTokenVerifier constructs a verifier over the same key set the issuer signs with.
func NewTokenVerifier(keys *KeySet) *TokenVerifier {
	return &TokenVerifier{keys: keys}
}

// Verify checks signature and expiry for the claimed role and kind and
// returns the subject (user id).
func (v *TokenVerifier) Verify(tokenString string, role domain.Role, kind TokenKind) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrTokenInvalid
	}

	key, err := v.keys.VerificationKey(role, kind)
	if err != nil {
		return "", err
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
