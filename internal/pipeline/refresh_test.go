package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
	"github.com/couchcryptid/geo-heat-overlay/internal/synthetic"
)

type stubSource struct {
	ds  domain.DataSource
	err error
}

func (s stubSource) FetchBatch(ctx context.Context, _ domain.MetricKind) (domain.DataSource, error) {
	if err := ctx.Err(); err != nil {
		return domain.DataSource{}, err
	}
	return s.ds, s.err
}

type recordingSink struct {
	mu        sync.Mutex
	kind      domain.MetricKind
	submitted []domain.DataSource
}

func (s *recordingSink) ActiveMetric() domain.MetricKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *recordingSink) Submit(ds domain.DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, ds)
}

func (s *recordingSink) last() domain.DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted[len(s.submitted)-1]
}

func liveSet(kind domain.MetricKind) domain.DataSource {
	return domain.Live(kind, []domain.Sample{domain.NewSample(kind, 1, 2, 0.4, "live", "")})
}

func TestPipeline_Refresh_UsesLiveData(t *testing.T) {
	sink := &recordingSink{kind: domain.Fire}
	metrics := newTestMetrics()
	fallback := synthetic.New(1, clockwork.NewFakeClock())
	p := pipeline.New(stubSource{ds: liveSet(domain.Fire)}, fallback, sink, discardLogger(), metrics)

	require.Error(t, p.CheckReadiness(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))

	got := sink.last()
	assert.Equal(t, domain.ProvenanceLive, got.Provenance())
	assert.Equal(t, "live", got.Samples()[0].Label)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("live", "success")), 0)
}

func TestPipeline_Refresh_FallsBack(t *testing.T) {
	fallback := synthetic.New(1, clockwork.NewFakeClock())

	tests := []struct {
		name       string
		live       pipeline.BatchSource
		liveErrors float64
	}{
		{"no live source", nil, 0},
		{"live source has no data", stubSource{err: pipeline.ErrNoData}, 0},
		{"live source empty", stubSource{ds: domain.Live(domain.Humidity, nil)}, 0},
		{"live source fails", stubSource{err: errors.New("broker down")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{kind: domain.Humidity}
			metrics := newTestMetrics()
			p := pipeline.New(tt.live, fallback, sink, discardLogger(), metrics)

			require.NoError(t, p.Refresh(context.Background()))

			got := sink.last()
			assert.Equal(t, domain.ProvenanceSynthetic, got.Provenance())
			assert.Equal(t, domain.Humidity, got.Kind())
			assert.Equal(t, len(synthetic.Places(domain.Humidity)), got.Len())
			assert.InDelta(t, tt.liveErrors, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("live", "error")), 0)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("synthetic", "success")), 0)
		})
	}
}

func TestPipeline_Refresh_FallbackFailure(t *testing.T) {
	sink := &recordingSink{kind: domain.AQI}
	p := pipeline.New(nil, stubSource{err: errors.New("boom")}, sink, discardLogger(), newTestMetrics())

	err := p.Refresh(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh aqi")
	assert.Empty(t, sink.submitted)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Refresh_Cancelled(t *testing.T) {
	sink := &recordingSink{kind: domain.AQI}
	p := pipeline.New(stubSource{ds: liveSet(domain.AQI)}, synthetic.New(1, nil), sink, discardLogger(), newTestMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Refresh(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.submitted)
}

func TestPipeline_Refresh_FollowsActiveMetric(t *testing.T) {
	sink := &recordingSink{kind: domain.AQI}
	store := pipeline.NewLatestStore()
	require.NoError(t, store.LoadBatch(context.Background(), []domain.DataSource{liveSet(domain.Temperature)}))
	p := pipeline.New(store, synthetic.New(1, nil), sink, discardLogger(), newTestMetrics())

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, domain.ProvenanceSynthetic, sink.last().Provenance())

	sink.mu.Lock()
	sink.kind = domain.Temperature
	sink.mu.Unlock()
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, domain.ProvenanceLive, sink.last().Provenance())
	assert.Equal(t, domain.Temperature, sink.last().Kind())
}

func TestPipeline_ScheduledRefresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &recordingSink{kind: domain.Fire}
	p := pipeline.New(nil, synthetic.New(3, clock), sink, discardLogger(), newTestMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task := pipeline.Schedule(ctx, clock, 30*time.Second, p.Refresh)
	defer task.Stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return task.Runs() == 1 }, time.Second, 5*time.Millisecond)
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return task.Runs() == 2 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.submitted, 2)
}
