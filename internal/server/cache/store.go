// Package cache is the fast key-value store the auth service treats as the
// source of truth for token validity: the current refresh token per user
// and the blacklist of revoked access tokens.
package cache

import (
	"context"
	"time"
)

// Store is the cache capability consumed by the auth service.
//
// Set is a last-writer-wins replace: writing a key discards whatever value
// and expiry it had before. The single-active-refresh-token property of the
// auth service rests on this contract.
//
// Set members added with AddToSet expire individually, ttl after insertion.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns common.ErrorNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// CompareAndSwap atomically replaces the value of key with next, and
	// resets its ttl, only while key still holds old. It reports whether the
	// swap happened; an absent key never swaps.
	CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) (bool, error)
	AddToSet(ctx context.Context, setKey, member string, ttl time.Duration) error
	IsMember(ctx context.Context, setKey, member string) (bool, error)
}
