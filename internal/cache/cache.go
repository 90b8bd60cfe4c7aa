// Package cache memoizes search result pages. Every backend satisfies
// ResultCache; decorators add a circuit breaker and metrics on top.
package cache

import (
	"context"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
)

// DefaultTTL is how long a cached page is served after it was written.
const DefaultTTL = 15 * time.Minute

// ResultCache stores search pages by key. Implementations must be safe for
// concurrent use; writes to one key never affect another.
type ResultCache interface {
	// Get returns the page stored at key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*domain.SearchPage, bool, error)
	// Put stores page at key for ttl, replacing any previous value.
	Put(ctx context.Context, key string, page *domain.SearchPage, ttl time.Duration) error
	// Invalidate removes one key.
	Invalidate(ctx context.Context, key string) error
	// Purge removes every search page.
	Purge(ctx context.Context) error
}

// Nop is a ResultCache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.SearchPage, bool, error) { return nil, false, nil }

func (Nop) Put(context.Context, string, *domain.SearchPage, time.Duration) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }

func (Nop) Purge(context.Context) error { return nil }
