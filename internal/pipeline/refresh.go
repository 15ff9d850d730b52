package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
)

// BatchSource supplies a full sample set for a metric.
type BatchSource interface {
	FetchBatch(ctx context.Context, kind domain.MetricKind) (domain.DataSource, error)
}

// Sink receives refreshed sample sets and names the metric to fetch.
type Sink interface {
	ActiveMetric() domain.MetricKind
	Submit(ds domain.DataSource)
}

// Pipeline refreshes the sink from a live source, falling back to synthetic
// data when the live source fails or has nothing.
type Pipeline struct {
	live     BatchSource
	fallback BatchSource
	sink     Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline. live may be nil, in which case every refresh uses
// the fallback.
func New(live, fallback BatchSource, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		live:     live,
		fallback: fallback,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a sample set has been submitted, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no sample set has been loaded yet")
	}
	return nil
}

// Refresh fetches data for the sink's active metric and submits it.
func (p *Pipeline) Refresh(ctx context.Context) error {
	kind := p.sink.ActiveMetric()
	ds, err := p.fetch(ctx, kind)
	if err != nil {
		return err
	}
	p.sink.Submit(ds)
	p.metrics.Refreshes.WithLabelValues(ds.Provenance().String(), "success").Inc()
	p.ready.Store(true)
	p.logger.Debug("sample set refreshed", "kind", kind, "provenance", ds.Provenance(), "samples", ds.Len())
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, kind domain.MetricKind) (domain.DataSource, error) {
	if p.live != nil {
		ds, err := p.live.FetchBatch(ctx, kind)
		switch {
		case err == nil && ds.Len() > 0:
			return ds, nil
		case ctx.Err() != nil:
			return domain.DataSource{}, ctx.Err()
		case err == nil, errors.Is(err, ErrNoData):
			p.logger.Debug("no live data, using synthetic", "kind", kind)
		default:
			p.metrics.Refreshes.WithLabelValues(domain.ProvenanceLive.String(), "error").Inc()
			p.logger.Warn("live fetch failed, using synthetic", "kind", kind, "error", err)
		}
	}

	ds, err := p.fallback.FetchBatch(ctx, kind)
	if err != nil {
		p.metrics.Refreshes.WithLabelValues(domain.ProvenanceSynthetic.String(), "error").Inc()
		return domain.DataSource{}, fmt.Errorf("refresh %s: %w", kind, err)
	}
	return ds, nil
}
