package limits

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(testRedis(t), 2)
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	allowed, used, _, err := rl.Allow(context.Background(), 1, 10, now)
	if err != nil {
		t.Fatalf("allow#1: %v", err)
	}
	if !allowed || used != 1 {
		t.Fatalf("expected first call allowed with used=1, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, _, err = rl.Allow(context.Background(), 1, 10, now)
	if err != nil {
		t.Fatalf("allow#2: %v", err)
	}
	if !allowed || used != 2 {
		t.Fatalf("expected second call allowed with used=2, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, resetAt, err := rl.Allow(context.Background(), 1, 10, now)
	if err != nil {
		t.Fatalf("allow#3: %v", err)
	}
	if allowed || used != 3 {
		t.Fatalf("expected third call denied with used=3, got allowed=%v used=%d", allowed, used)
	}
	if want := now.Truncate(time.Hour).Add(time.Hour); !resetAt.Equal(want) {
		t.Fatalf("expected reset at %v, got %v", want, resetAt)
	}
}

func TestUpdateDeduplicator(t *testing.T) {
	d := NewUpdateDeduplicator(testRedis(t), time.Hour)

	first, err := d.MarkFirst(context.Background(), 42)
	if err != nil {
		t.Fatalf("mark#1: %v", err)
	}
	if !first {
		t.Fatalf("first delivery must be marked first")
	}

	first, err = d.MarkFirst(context.Background(), 42)
	if err != nil {
		t.Fatalf("mark#2: %v", err)
	}
	if first {
		t.Fatalf("duplicate delivery must not be marked first")
	}
}

func TestCooldown(t *testing.T) {
	c := NewCooldown(testRedis(t), time.Minute)

	ok, err := c.Allow(context.Background(), -100)
	if err != nil || !ok {
		t.Fatalf("first roast should pass, got ok=%v err=%v", ok, err)
	}
	ok, err = c.Allow(context.Background(), -100)
	if err != nil || ok {
		t.Fatalf("second roast inside cooldown should be denied, got ok=%v err=%v", ok, err)
	}
	ok, err = c.Allow(context.Background(), -200)
	if err != nil || !ok {
		t.Fatalf("other chat should not share the cooldown, got ok=%v err=%v", ok, err)
	}
}

func TestCooldownDisabled(t *testing.T) {
	c := NewCooldown(testRedis(t), 0)
	for i := 0; i < 3; i++ {
		ok, err := c.Allow(context.Background(), 1)
		if err != nil || !ok {
			t.Fatalf("disabled cooldown must always allow, got ok=%v err=%v", ok, err)
		}
	}
}
