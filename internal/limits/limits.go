// Package limits holds the redis-backed throttles: transport update
// deduplication, the per-chat roast cooldown, and the hourly per-user
// command limiter.
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RateLimiter caps generation commands per user per hour window.
type RateLimiter struct {
	redis *redis.Client
	limit int64
}

func NewRateLimiter(rdb *redis.Client, limit int64) *RateLimiter {
	return &RateLimiter{redis: rdb, limit: limit}
}

func (r *RateLimiter) Allow(ctx context.Context, chatID, userID int64, now time.Time) (allowed bool, used int64, resetAt time.Time, err error) {
	windowStart := now.UTC().Truncate(time.Hour)
	windowEnd := windowStart.Add(time.Hour)
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("genbot:ratelimit:%d:%d:%s", chatID, userID, windowStart.Format("2006010215"))
	res, err := incrWithTTLScript.Run(ctx, r.redis, []string{key}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return res <= r.limit, res, windowEnd, nil
}

// UpdateDeduplicator drops transport updates already seen within the TTL.
// The transport is at-least-once; this trims most duplicates without
// promising exactly-once.
type UpdateDeduplicator struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewUpdateDeduplicator(rdb *redis.Client, ttl time.Duration) *UpdateDeduplicator {
	return &UpdateDeduplicator{redis: rdb, ttl: ttl}
}

func (d *UpdateDeduplicator) MarkFirst(ctx context.Context, updateID int64) (bool, error) {
	key := fmt.Sprintf("genbot:update:%d", updateID)
	ok, err := d.redis.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}

// Cooldown gates the passive roast per chat so one chat cannot get a
// generated reply for every single message.
type Cooldown struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCooldown(rdb *redis.Client, ttl time.Duration) *Cooldown {
	return &Cooldown{redis: rdb, ttl: ttl}
}

func (c *Cooldown) Allow(ctx context.Context, chatID int64) (bool, error) {
	if c.ttl <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("genbot:roast:%d", chatID)
	ok, err := c.redis.SetNX(ctx, key, "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}
