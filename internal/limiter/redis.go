package limiter

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript implements the window atomically in Redis: drop
// expired members from the owner's ZSET, count what remains, and only add
// the new timestamp when the count is below the limit.
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local member = ARGV[4]

    redis.call('ZREMRANGEBYSCORE', key, 0, now_ms - window_ms)
    local count = redis.call('ZCARD', key)
    if count >= limit then
        return 0
    end
    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return 1
`)

// Redis is the shared sliding-window limiter used when a Redis client is
// configured, so the limit holds across process restarts. On any Redis
// failure it fails open: a broken limiter must not take the bot down.
type Redis struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	seq    uint64
}

// NewRedis returns a Redis-backed limiter. The client must be non-nil;
// callers with no Redis configured should use NewWindow instead.
func NewRedis(rdb *redis.Client, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{rdb: rdb, limit: limit, window: window, prefix: "rl:query"}
}

func (r *Redis) Allow(ctx context.Context, owner string) bool {
	now := time.Now()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), atomic.AddUint64(&r.seq, 1))
	key := r.prefix + ":" + owner

	res, err := slidingWindowScript.Run(ctx, r.rdb, []string{key},
		now.UnixMilli(), r.window.Milliseconds(), r.limit, member).Int()
	if err != nil {
		log.Printf("limiter: redis error for %s: %v (allowing)", owner, err)
		return true
	}
	return res == 1
}
