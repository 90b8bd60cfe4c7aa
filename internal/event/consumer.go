package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/cache"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
)

// CacheInvalidator purges the search cache whenever another replica
// reports a catalog write. Each replica needs its own consumer group so
// that every in-process cache sees every event.
type CacheInvalidator struct {
	cache  cache.ResultCache
	logger *slog.Logger
}

// NewCacheInvalidator creates the consumer-side handler.
func NewCacheInvalidator(c cache.ResultCache, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: c, logger: logger}
}

// Handle purges the cache for any catalog event. A returned error makes
// the consumer retry the message.
func (h *CacheInvalidator) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if err := h.cache.Purge(ctx); err != nil {
		return fmt.Errorf("purge search cache on %s: %w", event.EventType, err)
	}

	h.logger.InfoContext(ctx, "search cache purged",
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}
