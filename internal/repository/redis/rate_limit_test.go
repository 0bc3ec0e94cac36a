package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func TestRateLimitRepository_Increment(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", Window: time.Minute})
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.Increment(ctx, "login", "198.51.100.10")
		if err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	// Separate keys count independently.
	got, err := repo.Increment(ctx, "login", "198.51.100.11")
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected count 1 for fresh key, got %d", got)
	}
}

func TestRateLimitRepository_WindowSlides(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", Window: time.Minute})
	ctx := context.Background()

	base := time.Now().UTC()
	repo.WithClock(func() time.Time { return base })

	if _, err := repo.Increment(ctx, "login", "key"); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	repo.WithClock(func() time.Time { return base.Add(2 * time.Minute) })

	got, err := repo.Increment(ctx, "login", "key")
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected stale attempt trimmed, got count %d", got)
	}
}
