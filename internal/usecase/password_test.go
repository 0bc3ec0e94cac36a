package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPasswordResetEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", true, false)
	ctx := context.Background()

	// An active session exists before the reset.
	login, err := env.auth.Login(ctx, "casey@example.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.password.RequestReset(ctx, "casey@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	mail := env.mailer.last(t)
	if !strings.Contains(mail.Link, "/api/v1/password/confirm/user-1/") {
		t.Fatalf("unexpected confirm link %s", mail.Link)
	}

	key, err := env.password.ConfirmResetLink(ctx, "user-1", linkToken(t, mail.Link))
	if err != nil {
		t.Fatalf("ConfirmResetLink returned error: %v", err)
	}
	if key == "" {
		t.Fatal("empty reset key")
	}

	if err := env.password.ResetPassword(ctx, key, "newsecret"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	// Old password is dead, new one works.
	if _, err := env.auth.Login(ctx, "casey@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must fail, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "casey@example.com", "newsecret"); err != nil {
		t.Fatalf("new password failed: %v", err)
	}

	// Pre-reset refresh tokens are revoked.
	if _, err := env.auth.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("pre-reset refresh token must be revoked, got %v", err)
	}

	// The key is single use.
	if err := env.password.ResetPassword(ctx, key, "again"); !errors.Is(err, ErrResetKeyInvalid) {
		t.Fatalf("expected ErrResetKeyInvalid on reuse, got %v", err)
	}
}

func TestRequestResetRequiresVerifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", false, false)
	ctx := context.Background()

	if err := env.password.RequestReset(ctx, "casey@example.com"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if err := env.password.RequestReset(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConfirmResetLinkRotatedAway(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", true, false)
	ctx := context.Background()

	if err := env.password.RequestReset(ctx, "casey@example.com"); err != nil {
		t.Fatalf("first RequestReset: %v", err)
	}
	firstToken := linkToken(t, env.mailer.last(t).Link)

	if err := env.password.RequestReset(ctx, "casey@example.com"); err != nil {
		t.Fatalf("second RequestReset: %v", err)
	}
	secondToken := linkToken(t, env.mailer.last(t).Link)

	if _, err := env.password.ConfirmResetLink(ctx, "user-1", firstToken); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("expected ErrLinkInvalid for the rotated-away link, got %v", err)
	}
	if _, err := env.password.ConfirmResetLink(ctx, "user-1", secondToken); err != nil {
		t.Fatalf("fresh link failed: %v", err)
	}
}

func TestResetPasswordRejectsUnconfirmedKey(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", true, false)
	ctx := context.Background()

	if err := env.password.RequestReset(ctx, "casey@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	// Steal the key value straight from storage, skipping link confirmation.
	key, err := env.resetKeys.GetByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("reset key missing: %v", err)
	}

	if err := env.password.ResetPassword(ctx, key.Value, "newsecret"); !errors.Is(err, ErrResetKeyInvalid) {
		t.Fatalf("expected ErrResetKeyInvalid for unconfirmed key, got %v", err)
	}
}

func TestResetPasswordExpiredWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", true, false)
	ctx := context.Background()

	if err := env.password.RequestReset(ctx, "casey@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	key, err := env.password.ConfirmResetLink(ctx, "user-1", linkToken(t, env.mailer.last(t).Link))
	if err != nil {
		t.Fatalf("ConfirmResetLink returned error: %v", err)
	}

	env.password.WithClock(func() time.Time { return time.Now().Add(6 * time.Minute) })

	if err := env.password.ResetPassword(ctx, key, "newsecret"); !errors.Is(err, ErrResetKeyExpired) {
		t.Fatalf("expected ErrResetKeyExpired, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-1", "casey@example.com", true, false)
	ctx := context.Background()

	login, err := env.auth.Login(ctx, "casey@example.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.password.UpdatePassword(ctx, "user-1", "wrong", "newsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := env.password.UpdatePassword(ctx, "user-1", "secret", "newsecret"); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}

	if _, err := env.auth.Login(ctx, "casey@example.com", "newsecret"); err != nil {
		t.Fatalf("new password failed: %v", err)
	}
	if _, err := env.auth.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("pre-change refresh token must be revoked, got %v", err)
	}
}
