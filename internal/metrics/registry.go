package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the data-layer metrics for the portal client. Stores hold
// it as an optional dependency; a nil registry disables recording.
type Registry struct {
	meter metric.Meter

	// Fetch metrics
	FetchDuration metric.Float64Histogram
	FetchCounter  metric.Int64Counter
	FetchFailures metric.Int64Counter
	StaleDrops    metric.Int64Counter

	// Mutation metrics
	MutationCounter  metric.Int64Counter
	MutationFailures metric.Int64Counter
	FanoutPatches    metric.Int64Counter

	// Cache state gauges
	CachedApplications metric.Int64ObservableGauge
	CachedTenders      metric.Int64ObservableGauge
	TrackedTenderViews metric.Int64ObservableGauge

	// State for observable metrics
	mu           sync.RWMutex
	applications int64
	tenders      int64
	tenderViews  int64
}

// NewRegistry creates a metrics registry on the global meter provider.
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initFetchMetrics(); err != nil {
		return nil, err
	}
	if err := r.initMutationMetrics(); err != nil {
		return nil, err
	}
	if err := r.initCacheGauges(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initFetchMetrics() error {
	var err error

	r.FetchDuration, err = r.meter.Float64Histogram(
		"portal.fetch.duration",
		metric.WithDescription("Duration of list and entity fetches in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return err
	}

	r.FetchCounter, err = r.meter.Int64Counter(
		"portal.fetch.total",
		metric.WithDescription("Total fetches issued, by view"),
	)
	if err != nil {
		return err
	}

	r.FetchFailures, err = r.meter.Int64Counter(
		"portal.fetch.failures",
		metric.WithDescription("Fetches that ended in an error surfaced to the caller"),
	)
	if err != nil {
		return err
	}

	r.StaleDrops, err = r.meter.Int64Counter(
		"portal.fetch.stale_drops",
		metric.WithDescription("Responses discarded because a newer fetch for the same view superseded them"),
	)
	return err
}

func (r *Registry) initMutationMetrics() error {
	var err error

	r.MutationCounter, err = r.meter.Int64Counter(
		"portal.mutation.total",
		metric.WithDescription("Status and entity mutations confirmed by the server"),
	)
	if err != nil {
		return err
	}

	r.MutationFailures, err = r.meter.Int64Counter(
		"portal.mutation.failures",
		metric.WithDescription("Mutations rejected by the server or lost in transport"),
	)
	if err != nil {
		return err
	}

	r.FanoutPatches, err = r.meter.Int64Counter(
		"portal.mutation.fanout_patches",
		metric.WithDescription("View rows rewritten while propagating a confirmed mutation"),
	)
	return err
}

func (r *Registry) initCacheGauges() error {
	var err error

	r.CachedApplications, err = r.meter.Int64ObservableGauge(
		"portal.cache.applications",
		metric.WithDescription("Applications held in the entity table"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.applications)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.CachedTenders, err = r.meter.Int64ObservableGauge(
		"portal.cache.tenders",
		metric.WithDescription("Tenders held in the list cache"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.tenders)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.TrackedTenderViews, err = r.meter.Int64ObservableGauge(
		"portal.cache.tender_views",
		metric.WithDescription("Per-tender application views currently tracked"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.tenderViews)
			return nil
		}),
	)
	return err
}

// RecordFetch records one completed fetch for the named view.
func (r *Registry) RecordFetch(ctx context.Context, view string, durationMs float64, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("view", view))
	r.FetchCounter.Add(ctx, 1, attrs)
	r.FetchDuration.Record(ctx, durationMs, attrs)
	if err != nil {
		r.FetchFailures.Add(ctx, 1, attrs)
	}
}

// RecordStaleDrop records a response discarded by the freshness guard.
func (r *Registry) RecordStaleDrop(ctx context.Context, view string) {
	if r == nil {
		return
	}
	r.StaleDrops.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

// RecordMutation records one confirmed or failed mutation.
func (r *Registry) RecordMutation(ctx context.Context, operation string, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	if err != nil {
		r.MutationFailures.Add(ctx, 1, attrs)
		return
	}
	r.MutationCounter.Add(ctx, 1, attrs)
}

// RecordFanout records the number of view rows touched by one mutation.
func (r *Registry) RecordFanout(ctx context.Context, patched int) {
	if r == nil || patched <= 0 {
		return
	}
	r.FanoutPatches.Add(ctx, int64(patched))
}

// SetTenderCount updates the state read by the tender gauge.
func (r *Registry) SetTenderCount(n int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenders = int64(n)
}

// SetApplicationCounts updates the state read by the application gauges.
func (r *Registry) SetApplicationCounts(entities, tenderViews int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applications = int64(entities)
	r.tenderViews = int64(tenderViews)
}
