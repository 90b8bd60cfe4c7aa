package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/catalog-search/internal/domain"
)

// Metrics holds the cache collectors.
type Metrics struct {
	lookups      *prometheus.CounterVec
	writeErrors  prometheus.Counter
	breakerState *prometheus.GaugeVec
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Search cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "search_cache_write_errors_total",
			Help: "Search cache writes that failed",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
	}
	reg.MustRegister(m.lookups, m.writeErrors, m.breakerState)
	return m
}

func (m *Metrics) setBreakerState(name string, state gobreaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(stateToFloat(state))
}

// stateToFloat maps gobreaker states to gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Observed counts lookups and write failures of the wrapped cache.
type Observed struct {
	next    ResultCache
	metrics *Metrics
}

// NewObserved wraps next with metrics.
func NewObserved(next ResultCache, metrics *Metrics) *Observed {
	return &Observed{next: next, metrics: metrics}
}

func (o *Observed) Get(ctx context.Context, key string) (*domain.SearchPage, bool, error) {
	page, ok, err := o.next.Get(ctx, key)
	switch {
	case err != nil:
		o.metrics.lookups.WithLabelValues("error").Inc()
	case ok:
		o.metrics.lookups.WithLabelValues("hit").Inc()
	default:
		o.metrics.lookups.WithLabelValues("miss").Inc()
	}
	return page, ok, err
}

func (o *Observed) Put(ctx context.Context, key string, page *domain.SearchPage, ttl time.Duration) error {
	err := o.next.Put(ctx, key, page, ttl)
	if err != nil {
		o.metrics.writeErrors.Inc()
	}
	return err
}

func (o *Observed) Invalidate(ctx context.Context, key string) error {
	return o.next.Invalidate(ctx, key)
}

func (o *Observed) Purge(ctx context.Context) error {
	return o.next.Purge(ctx)
}
