package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
)

// SampleTransformer implements Transformer using the domain parsing
// functions with optional geocoding enrichment.
type SampleTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a SampleTransformer. Pass a nil geocoder to disable
// geocoding; label-only samples are then dropped.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *SampleTransformer {
	return &SampleTransformer{
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform parses a batch message into a live sample set. Samples that
// cannot be placed on the globe are dropped and counted.
func (t *SampleTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.DataSource, error) {
	kind, batch, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.DataSource{}, err
	}

	samples := make([]domain.Sample, 0, len(batch.Samples))
	for _, rs := range batch.Samples {
		s, ok := domain.EnrichWithGeocoding(ctx, kind, rs, t.geocoder, t.logger)
		if !ok {
			t.metrics.SamplesDropped.Inc()
			continue
		}
		samples = append(samples, s)
	}
	return domain.Live(kind, samples), nil
}
