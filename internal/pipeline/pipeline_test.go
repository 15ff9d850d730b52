package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	index  atomic.Int64
	err    error
	calls  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	start := int(m.index.Load())
	if start >= len(m.events) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	end := min(start+batchSize, len(m.events))
	m.index.Store(int64(end))
	return m.events[start:end], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.DataSource, error) {
	if m.err != nil {
		return domain.DataSource{}, m.err
	}
	kind, err := domain.ParseMetricKind(raw.Headers[domain.KindHeader])
	if err != nil {
		return domain.DataSource{}, err
	}
	return domain.Live(kind, []domain.Sample{domain.NewSample(kind, 1, 2, 0.5, string(raw.Key), "")}), nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.DataSource
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, batches []domain.DataSource) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, batches...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestIngestor_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, "aqi", "São Paulo")

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.NewIngestor(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, domain.AQI, ldr.loaded[0].Kind())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestIngestor_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no events, will block
	ldr := &mockLoader{}

	p := pipeline.NewIngestor(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestIngestor_Run_ParseErrorSkipsAndCommits(t *testing.T) {
	commits := 0
	raw := makeRawEvent(t, "fire", "Amazon")
	raw.Commit = func(context.Context) error {
		commits++
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.NewIngestor(ext, &mockTransformer{err: errors.New("bad data")}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Equal(t, 1, commits)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseErrors), 0)
}

func TestIngestor_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false

	raw := makeRawEvent(t, "humidity", "Lagos")
	raw.Topic = "geo-samples"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	p := pipeline.NewIngestor(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, commitCalled)
}

func TestIngestor_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commitCalled := false
	raw := makeRawEvent(t, "aqi", "Lima")
	raw.Commit = func(context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{err: errors.New("store down")}
	p := pipeline.NewIngestor(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, commitCalled)
}

func TestIngestor_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker unavailable")}
	p := pipeline.NewIngestor(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	// 200ms then 400ms of backoff fit at most three attempts in the window.
	assert.LessOrEqual(t, ext.calls.Load(), int64(3))
	assert.GreaterOrEqual(t, ext.calls.Load(), int64(2))
}

func TestIngestor_Run_RespectsBatchSize(t *testing.T) {
	events := []domain.RawEvent{
		makeRawEvent(t, "aqi", "a"),
		makeRawEvent(t, "aqi", "b"),
		makeRawEvent(t, "fire", "c"),
	}
	ext := &mockExtractor{events: events}
	ldr := &mockLoader{}
	p := pipeline.NewIngestor(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.loaded, 3)
	assert.Equal(t, int64(3), ext.calls.Load())
}

// --- helpers ---

func makeRawEvent(t *testing.T, kind, label string) domain.RawEvent {
	t.Helper()
	lat, lon := 10.0, 20.0
	data, err := json.Marshal(domain.RawBatch{
		Kind: kind,
		Samples: []domain.RawSample{
			{Lat: &lat, Lon: &lon, Intensity: 0.5, Label: label},
		},
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:     []byte(label),
		Value:   data,
		Headers: map[string]string{domain.KindHeader: kind},
	}
}
