package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the key-value port the catalog core talks to. Values are opaque
// JSON bytes; entries are advisory accelerators, never authoritative, so any
// implementation error is safe to treat as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache key layout. Writes invalidate only the two global keys; per-id and
// per-category entries are left to expire on their own.
const (
	KeyAllActive     = "subscriptions:all"
	KeyAllCategories = "subscriptions:categories"

	subscriptionKeyPrefix = "subscription:"
	categoryKeyPrefix     = "subscriptions:category:"
)

func KeyByID(id uint) string {
	return fmt.Sprintf("%s%d", subscriptionKeyPrefix, id)
}

func KeyByCategory(category string) string {
	return categoryKeyPrefix + category
}
