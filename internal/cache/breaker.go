package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/catalog-search/internal/domain"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig holds configuration for the cache circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the breaker settings used for the search
// cache.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

type getResult struct {
	page *domain.SearchPage
	ok   bool
}

// Breaker wraps a ResultCache with a circuit breaker. While open, every
// call fails fast with ErrCircuitOpen instead of waiting on a dead backend.
type Breaker struct {
	next    ResultCache
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next. metrics may be nil.
func NewBreaker(next ResultCache, cfg BreakerConfig, metrics *Metrics, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.setBreakerState(name, to)
		},
		// The caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	metrics.setBreakerState(cfg.Name, gobreaker.StateClosed)

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Get reads through the breaker.
func (b *Breaker) Get(ctx context.Context, key string) (*domain.SearchPage, bool, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		page, ok, err := b.next.Get(ctx, key)
		return getResult{page: page, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.page, r.ok, nil
}

// Put writes through the breaker.
func (b *Breaker) Put(ctx context.Context, key string, page *domain.SearchPage, ttl time.Duration) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.Put(ctx, key, page, ttl)
	})
	return err
}

// Invalidate deletes through the breaker.
func (b *Breaker) Invalidate(ctx context.Context, key string) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.Invalidate(ctx, key)
	})
	return err
}

// Purge bypasses the breaker: it is an operator action and should reach
// the backend even while reads are being shed.
func (b *Breaker) Purge(ctx context.Context) error {
	return b.next.Purge(ctx)
}

// State returns the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}
