package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
)

func TestLatestStore_FetchEmpty(t *testing.T) {
	s := pipeline.NewLatestStore()

	_, err := s.FetchBatch(context.Background(), domain.AQI)

	assert.ErrorIs(t, err, pipeline.ErrNoData)
}

func TestLatestStore_LatestWins(t *testing.T) {
	s := pipeline.NewLatestStore()
	var updates []domain.MetricKind
	s.OnUpdate = func(k domain.MetricKind) { updates = append(updates, k) }

	first := domain.Live(domain.AQI, []domain.Sample{domain.NewSample(domain.AQI, 0, 0, 0.1, "first", "")})
	second := domain.Live(domain.AQI, []domain.Sample{domain.NewSample(domain.AQI, 0, 0, 0.2, "second", "")})
	fire := liveSet(domain.Fire)

	require.NoError(t, s.LoadBatch(context.Background(), []domain.DataSource{first, fire}))
	require.NoError(t, s.LoadBatch(context.Background(), []domain.DataSource{second}))

	got, err := s.FetchBatch(context.Background(), domain.AQI)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Samples()[0].Label)
	assert.Equal(t, 2, s.Kinds())
	assert.ElementsMatch(t, []domain.MetricKind{domain.AQI, domain.Fire, domain.AQI}, updates)
}

func TestLatestStore_FetchCancelled(t *testing.T) {
	s := pipeline.NewLatestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchBatch(ctx, domain.AQI)
	assert.ErrorIs(t, err, context.Canceled)
}
