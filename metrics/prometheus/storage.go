// Package prometheus instruments an httpcache.Storage backend with
// Prometheus metrics covering cache hits, misses, and admission decisions.
package prometheus

import (
	"context"
	"time"

	"github.com/go-httpcache/httpcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels used on the operations counter.
const (
	resultHit      = "hit"
	resultMiss     = "miss"
	resultSuccess  = "success"
	resultError    = "error"
	resultAdmitted = "admitted"
	resultRejected = "rejected"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_storage_operations_total",
		Help: "Total number of storage operations, by operation, backend, and result.",
	}, []string{"operation", "backend", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpcache_storage_operation_duration_seconds",
		Help:    "Duration of storage operations in seconds, by operation and backend.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_admissions_total",
		Help: "Total number of storability admission decisions, by backend and result.",
	}, []string{"backend", "result"})
)

// InstrumentedStorage wraps an httpcache.Storage with Prometheus metrics.
type InstrumentedStorage struct {
	underlying httpcache.Storage
	backend    string
}

// NewInstrumentedStorage wraps storage, recording metrics under the given
// backend label (e.g. "memory", "redis", "disk").
func NewInstrumentedStorage(storage httpcache.Storage, backend string) *InstrumentedStorage {
	return &InstrumentedStorage{underlying: storage, backend: backend}
}

// Get retrieves a value, recording a hit/miss/error outcome and duration.
func (s *InstrumentedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, ok, err := s.underlying.Get(ctx, key)
	operationDuration.WithLabelValues("get", s.backend).Observe(time.Since(start).Seconds())

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	operationsTotal.WithLabelValues("get", s.backend, result).Inc()

	return value, ok, err
}

// Set stores a value, recording a success/error outcome and duration.
func (s *InstrumentedStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := s.underlying.Set(ctx, key, value, ttl)
	operationDuration.WithLabelValues("set", s.backend).Observe(time.Since(start).Seconds())

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	operationsTotal.WithLabelValues("set", s.backend, result).Inc()

	return err
}

// Clear clears the backend, recording a success/error outcome and duration.
func (s *InstrumentedStorage) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.underlying.Clear(ctx)
	operationDuration.WithLabelValues("clear", s.backend).Observe(time.Since(start).Seconds())

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	operationsTotal.WithLabelValues("clear", s.backend, result).Inc()

	return err
}

// RecordAdmission records whether a response was admitted into the cache
// following storability evaluation. The Transport calls it after every
// evaluation, admitted or rejected, so rejections are visible too, since
// a rejected response never reaches Set.
func (s *InstrumentedStorage) RecordAdmission(admitted bool) {
	result := resultRejected
	if admitted {
		result = resultAdmitted
	}
	admissionsTotal.WithLabelValues(s.backend, result).Inc()
}

var _ httpcache.Storage = (*InstrumentedStorage)(nil)
