package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/fk00750/authguard/internal/repository"
)

func newTestRepo(t *testing.T) *OTPRepository {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewOTPRepository(client, "otp")
}

func TestOTPRepository_CreateAndConsume(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "123456", 15*time.Minute)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.UserID != "user-1" || created.Code != "123456" {
		t.Fatalf("unexpected challenge: %+v", created)
	}

	challenge, err := repo.Consume(ctx, "123456")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if challenge.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", challenge.UserID)
	}
	if challenge.IsExpired(time.Now().UTC()) {
		t.Fatal("fresh challenge reported expired")
	}

	// Single use.
	if _, err := repo.Consume(ctx, "123456"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second consume, got %v", err)
	}
}

func TestOTPRepository_CodeHeldByAnotherUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "user-1", "123456", 15*time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// The same code for a second user must not repoint the index.
	if _, err := repo.Create(ctx, "user-2", "123456", 15*time.Minute); !errors.Is(err, repository.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}

	challenge, err := repo.Consume(ctx, "123456")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if challenge.UserID != "user-1" {
		t.Fatalf("expected the original holder, got %s", challenge.UserID)
	}

	// With the code released, the second user can take it.
	if _, err := repo.Create(ctx, "user-2", "123456", 15*time.Minute); err != nil {
		t.Fatalf("Create after release returned error: %v", err)
	}
}

func TestOTPRepository_CreateConflictWhileOutstanding(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "user-1", "111111", 15*time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := repo.Create(ctx, "user-1", "222222", 15*time.Minute); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The outstanding code is still the first one.
	challenge, err := repo.Consume(ctx, "111111")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if challenge.Code != "111111" {
		t.Fatalf("unexpected code %s", challenge.Code)
	}
}

func TestOTPRepository_ExpiredChallengeIsReplaced(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	repo.WithClock(func() time.Time { return base })

	if _, err := repo.Create(ctx, "user-1", "111111", 15*time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	repo.WithClock(func() time.Time { return base.Add(16 * time.Minute) })

	created, err := repo.Create(ctx, "user-1", "222222", 15*time.Minute)
	if err != nil {
		t.Fatalf("Create after expiry returned error: %v", err)
	}
	if created.Code != "222222" {
		t.Fatalf("unexpected code %s", created.Code)
	}

	// The replaced code no longer resolves.
	if _, err := repo.Consume(ctx, "111111"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for replaced code, got %v", err)
	}
}

func TestOTPRepository_ConsumeReturnsExpiredChallenge(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	repo.WithClock(func() time.Time { return base })

	if _, err := repo.Create(ctx, "user-1", "123456", 15*time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	challenge, err := repo.Consume(ctx, "123456")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if !challenge.IsExpired(base.Add(16 * time.Minute)) {
		t.Fatal("challenge should report expired past its window")
	}
}

func TestOTPRepository_ConsumeUnknownCode(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Consume(context.Background(), "000000"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
