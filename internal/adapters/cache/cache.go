package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is an LRU of at most size entries that expire after ttl.
// A zero ttl keeps entries until they are evicted by size.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

func NewCache[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		lru: expirable.NewLRU[K, V](size, nil, ttl),
	}
}

func (c *Cache[K, V]) Get(_ context.Context, k K) (V, bool) {
	return c.lru.Get(k)
}

func (c *Cache[K, V]) Set(_ context.Context, k K, v V) {
	c.lru.Add(k, v)
}
