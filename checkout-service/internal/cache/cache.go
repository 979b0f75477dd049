package cache

import (
	"context"
	"errors"
	"time"
)

// LookupCache stores resolved marketplace documents (merchants, affiliates)
// as JSON under namespaced keys.
type LookupCache interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

const DefaultTTL = 10 * time.Minute
