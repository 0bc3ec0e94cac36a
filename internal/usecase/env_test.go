package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/infra/security"
)

const testBaseURL = "http://localhost:8080"

// testEnv wires every service against in-memory ports.
type testEnv struct {
	users        *memoryUsers
	tokens       *memoryTokens
	otps         *memoryOTPs
	secrets      *memorySecrets
	resetKeys    *memoryResetKeys
	mailer       *captureMailer
	events       *captureEvents
	signer       *security.LinkSigner
	auth         *AuthService
	twoFactor    *TwoFactorService
	registration *RegistrationService
	password     *PasswordService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:     newMemoryUsers(),
		tokens:    newMemoryTokens(),
		otps:      newMemoryOTPs(),
		secrets:   newMemorySecrets(),
		resetKeys: newMemoryResetKeys(),
		mailer:    &captureMailer{},
		events:    &captureEvents{},
		signer:    security.NewLinkSigner(0),
	}

	issuer := testIssuer(t, 0, 0)
	hasher := fakeHasher{}

	env.auth = NewAuthService(env.users, env.tokens, env.otps, hasher, issuer, env.mailer, env.events, nil, 15*time.Minute)
	env.twoFactor = NewTwoFactorService(env.users, env.otps, env.auth, env.events, nil)
	env.registration = NewRegistrationService(env.users, env.secrets, hasher, env.signer, env.mailer, env.events, nil, testBaseURL)
	env.password = NewPasswordService(env.users, env.tokens, env.secrets, env.resetKeys, hasher, env.signer, env.mailer, env.events, nil, testBaseURL, 5*time.Minute)

	return env
}

// seedUser inserts a user whose password is "secret" under the fake hasher.
func (e *testEnv) seedUser(t *testing.T, id, email string, verified, twoFactor bool) *domain.User {
	t.Helper()

	now := time.Now().UTC()
	user := domain.User{
		ID:               id,
		Username:         strings.SplitN(email, "@", 2)[0],
		Email:            email,
		PasswordHash:     "h:" + id + ":secret",
		Role:             domain.RoleUser,
		Verified:         verified,
		TwoFactorEnabled: twoFactor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

// linkToken pulls the signed token out of the last emailed link.
func linkToken(t *testing.T, link string) string {
	t.Helper()

	idx := strings.LastIndex(link, "/")
	if idx < 0 || idx == len(link)-1 {
		t.Fatalf("mail link carries no token: %s", link)
	}
	return link[idx+1:]
}
