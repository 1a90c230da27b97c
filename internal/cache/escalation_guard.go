package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	redisv9 "github.com/redis/go-redis/v9"
)

const defaultDedupeWindow = 10 * time.Minute

// RedisEscalationGuard remembers escalation keys in Redis so that every
// replica suppresses the same duplicates.
type RedisEscalationGuard struct {
	client *redisv9.Client
	window time.Duration
}

func NewRedisEscalationGuard(client *redisv9.Client, window time.Duration) *RedisEscalationGuard {
	if window <= 0 {
		window = defaultDedupeWindow
	}
	return &RedisEscalationGuard{client: client, window: window}
}

func (g *RedisEscalationGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(key), "1", g.window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx escalation key failed: %w", err)
	}
	return ok, nil
}

func (g *RedisEscalationGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del escalation key failed: %w", err)
	}
	return nil
}

func (g *RedisEscalationGuard) key(key string) string {
	return "chat:escalation:" + key
}

// MemoryEscalationGuard is the single-process fallback used when Redis is off.
type MemoryEscalationGuard struct {
	cache  *gocache.Cache
	window time.Duration
}

func NewMemoryEscalationGuard(window time.Duration) *MemoryEscalationGuard {
	if window <= 0 {
		window = defaultDedupeWindow
	}
	return &MemoryEscalationGuard{
		cache:  gocache.New(window, 2*window),
		window: window,
	}
}

func (g *MemoryEscalationGuard) Acquire(_ context.Context, key string) (bool, error) {
	if err := g.cache.Add(key, struct{}{}, g.window); err != nil {
		return false, nil
	}
	return true, nil
}

func (g *MemoryEscalationGuard) Release(_ context.Context, key string) error {
	g.cache.Delete(key)
	return nil
}
