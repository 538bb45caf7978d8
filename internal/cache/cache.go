// Package cache is a small JSON read cache in front of the conversation-list
// query, TTL-bounded and invalidated whenever a thread changes. Thread pages
// are deliberately not cached: a sender must see their message on the next
// read, and keyset pages cannot be enumerated for invalidation.
package cache

import (
	"context"
	"errors"
	"fmt"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON-encoded values under string keys with a fixed TTL.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, keys ...string) error
}

// ConversationsKey is the cache key for a user's conversation list.
func ConversationsKey(prefix, userID string) string {
	return fmt.Sprintf("%s:conversations:%s", prefix, userID)
}

// Noop is used when Redis is not configured; every lookup misses.
type Noop struct{}

func (Noop) GetJSON(ctx context.Context, key string, dest interface{}) error { return ErrCacheMiss }
func (Noop) SetJSON(ctx context.Context, key string, value interface{}) error {
	return nil
}
func (Noop) Invalidate(ctx context.Context, keys ...string) error { return nil }
