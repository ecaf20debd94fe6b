package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
type LayeredCache struct {
	mem   *MemoryCache
	redis Service
	l1TTL time.Duration
}

// NewLayeredCache puts a small memory cache in front of l2.
func NewLayeredCache(l2 Service, memSize int, l1TTL time.Duration) *LayeredCache {
	if l1TTL <= 0 {
		l1TTL = 30 * time.Second
	}
	return &LayeredCache{
		mem:   NewMemoryCache(WithMemoryMaxSize(memSize)),
		redis: l2,
		l1TTL: l1TTL,
	}
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.mem.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := lc.redis.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.mem.Set(ctx, key, b, lc.l1TTL)
	return b, nil
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	// Write-through: L2 first, then memory
	if err := lc.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	l1 := lc.l1TTL
	if expiration > 0 && expiration < l1 {
		l1 = expiration
	}
	return lc.mem.Set(ctx, key, value, l1)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.redis.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.mem.Close(), lc.redis.Close())
}

var _ Service = (*LayeredCache)(nil)
