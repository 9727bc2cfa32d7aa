package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/backoffice/domain"
)

// The first increment in a window sets its expiry, so the counter clears
// itself once the window has elapsed.
const incrScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

// RedisLimiter counts attempts per key in a fixed TTL window.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	script *redis.Script
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		script: redis.NewScript(incrScript),
	}
}

// Allow implements domain.ResendLimiter. Store errors are returned rather
// than treated as an allow.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	count, err := l.script.Run(ctx, l.client, []string{key}, ttl).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= int64(l.limit), nil
}

// Reset implements domain.ResendLimiter
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

var _ domain.ResendLimiter = (*RedisLimiter)(nil)
