package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSize = 1024

// Cache is an in-process key/value store with a fixed time to live.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
}

type ttlCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewTTLCache returns a bounded cache whose entries expire after ttl.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) Cache[K, V] {
	if size <= 0 {
		size = defaultSize
	}
	return &ttlCache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *ttlCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

func (c *ttlCache[K, V]) Purge() {
	c.lru.Purge()
}

// Key joins non-empty parts into a normalized cache key.
func Key(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
