package security

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fk00750/authguard/internal/core/domain"
)

func testKeySet(t *testing.T) *KeySet {
	t.Helper()

	keys := make(map[KeyPurpose]*rsa.PrivateKey, len(keyFiles))
	for purpose := range keyFiles {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate RSA key: %v", err)
		}
		keys[purpose] = key
	}

	set, err := NewKeySet(keys)
	if err != nil {
		t.Fatalf("NewKeySet: %v", err)
	}
	return set
}

func TestNewKeySet_MissingKeyIsFatal(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	_, err = NewKeySet(map[KeyPurpose]*rsa.PrivateKey{
		{Role: domain.RoleUser, Kind: KindAccess}: key,
	})
	if !errors.Is(err, ErrKeyUnavailable) {
		t.Fatalf("expected ErrKeyUnavailable, got %v", err)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	keys := testKeySet(t)
	issuer := NewTokenIssuer(keys, 0, 0)
	verifier := NewTokenVerifier(keys)

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAdmin} {
		access, err := issuer.IssueAccess(role, "user-42")
		if err != nil {
			t.Fatalf("IssueAccess(%s): %v", role, err)
		}

		subject, err := verifier.Verify(access, role, KindAccess)
		if err != nil {
			t.Fatalf("Verify access(%s): %v", role, err)
		}
		if subject != "user-42" {
			t.Fatalf("expected subject user-42, got %s", subject)
		}

		refresh, expiresAt, err := issuer.IssueRefresh(role, "user-42")
		if err != nil {
			t.Fatalf("IssueRefresh(%s): %v", role, err)
		}
		if !expiresAt.After(time.Now().Add(300 * 24 * time.Hour)) {
			t.Fatalf("expected year-scale refresh expiry, got %v", expiresAt)
		}
		if _, err := verifier.Verify(refresh, role, KindRefresh); err != nil {
			t.Fatalf("Verify refresh(%s): %v", role, err)
		}
	}
}

func TestTokenIssuer_KeysAreScopedByRoleAndKind(t *testing.T) {
	keys := testKeySet(t)
	issuer := NewTokenIssuer(keys, 0, 0)
	verifier := NewTokenVerifier(keys)

	access, err := issuer.IssueAccess(domain.RoleUser, "user-42")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	// a user access token must not verify against the admin or refresh keys
	if _, err := verifier.Verify(access, domain.RoleAdmin, KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong role, got %v", err)
	}
	if _, err := verifier.Verify(access, domain.RoleUser, KindRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong kind, got %v", err)
	}
}

func TestTokenIssuer_SameSecondMintsAreDistinct(t *testing.T) {
	keys := testKeySet(t)
	frozen := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(keys, 0, 0).WithClock(func() time.Time { return frozen })

	first, _, err := issuer.IssueRefresh(domain.RoleUser, "user-42")
	if err != nil {
		t.Fatalf("first IssueRefresh: %v", err)
	}
	second, _, err := issuer.IssueRefresh(domain.RoleUser, "user-42")
	if err != nil {
		t.Fatalf("second IssueRefresh: %v", err)
	}

	if first == second {
		t.Fatal("expected two refresh tokens minted in the same second to differ")
	}
	if HashToken(first) == HashToken(second) {
		t.Fatal("expected distinct ledger hashes for same-second mints")
	}
}

func TestTokenVerifier_Expired(t *testing.T) {
	keys := testKeySet(t)
	past := time.Now().Add(-time.Hour)
	issuer := NewTokenIssuer(keys, 50*time.Second, 0).WithClock(func() time.Time { return past })

	access, err := issuer.IssueAccess(domain.RoleUser, "user-42")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	_, err = NewTokenVerifier(keys).Verify(access, domain.RoleUser, KindAccess)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_RefreshExpiryMatchesClaim(t *testing.T) {
	keys := testKeySet(t)
	issuer := NewTokenIssuer(keys, 0, 24*time.Hour)

	refresh, expiresAt, err := issuer.IssueRefresh(domain.RoleUser, "user-42")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(refresh, claims); err != nil {
		t.Fatalf("decode refresh token: %v", err)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected exp claim on refresh token")
	}
	if got := claims.ExpiresAt.Time.Unix(); got != expiresAt.Unix() {
		t.Fatalf("ledger expiry %d does not match exp claim %d", expiresAt.Unix(), got)
	}
}
