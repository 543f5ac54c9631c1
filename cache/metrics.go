package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by the lookups counter.
const (
	resultHit       = "hit"
	resultShadowHit = "shadow_hit"
	resultMiss      = "miss"
)

// metrics holds the controller counters. A nil *metrics records nothing.
type metrics struct {
	lookups       *prometheus.CounterVec
	stores        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_cache_lookups_total",
				Help: "Cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		stores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_cache_stores_total",
				Help: "Values written to the cache store",
			},
			[]string{"namespace"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_cache_invalidations_total",
				Help: "Keys removed by bulk invalidation",
			},
			[]string{"namespace"},
		),
	}

	var err error
	m.lookups, err = register(reg, m.lookups)
	if err != nil {
		return nil, err
	}
	m.stores, err = register(reg, m.stores)
	if err != nil {
		return nil, err
	}
	m.invalidations, err = register(reg, m.invalidations)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses a collector already registered by another controller on the
// same registerer.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *metrics) lookup(namespace, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(namespace, result).Inc()
}

func (m *metrics) stored(namespace string) {
	if m == nil {
		return
	}
	m.stores.WithLabelValues(namespace).Inc()
}

func (m *metrics) invalidated(namespace string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.WithLabelValues(namespace).Add(float64(n))
}
