package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fk00750/authguard/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	Window    time.Duration
}

// RateLimitRepository counts attempts inside a sliding window using Redis
// sorted sets.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
	now    func() time.Time
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimitRepository{client: client, cfg: cfg, now: time.Now}
}

// Increment records an attempt and returns how many attempts the scope and
// key have accumulated within the window, the new attempt included.
func (r *RateLimitRepository) Increment(ctx context.Context, scope, key string) (int, error) {
	now := r.now().UTC()
	redisKey := r.key(scope, key)
	threshold := fmt.Sprintf("%f", float64(now.Add(-r.cfg.Window).UnixNano()))

	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	}

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", threshold)
	pipe.ZAdd(ctx, redisKey, member)
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.cfg.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis rate limit increment: %w", err)
	}

	return int(count.Val()), nil
}

// WithClock overrides the internal clock, used in tests.
func (r *RateLimitRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *RateLimitRepository) key(scope, key string) string {
	if r.cfg.KeyPrefix == "" {
		return fmt.Sprintf("%s:%s", scope, key)
	}
	return fmt.Sprintf("%s:%s:%s", r.cfg.KeyPrefix, scope, key)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
