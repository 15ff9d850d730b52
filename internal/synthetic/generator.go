// Package synthetic generates deterministic stand-in sample sets for when no
// live data is available. Intensities drift slowly over clock time with
// Perlin noise so the overlay stays alive without a feed.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"time"

	perlin "github.com/aquilax/go-perlin"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// Drift parameters.
const (
	// DriftAmplitude bounds how far a place strays from its base intensity.
	DriftAmplitude = 0.15
	// DriftPeriod is the clock time over which noise advances one unit.
	DriftPeriod = 5 * time.Minute
)

// Generator produces synthetic sample sets. It is safe for concurrent use.
type Generator struct {
	clock clockwork.Clock
	noise *perlin.Perlin
	epoch time.Time
}

// New creates a Generator whose noise field is fixed by seed.
func New(seed int64, clock clockwork.Clock) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Generator{
		clock: clock,
		noise: perlin.NewPerlin(2, 2, 3, seed),
		epoch: time.Unix(0, 0),
	}
}

// Generate returns the synthetic set for a metric at the current clock time.
func (g *Generator) Generate(kind domain.MetricKind) domain.DataSource {
	t := g.clock.Now().Sub(g.epoch).Seconds() / DriftPeriod.Seconds()
	places := catalogue[kind]
	samples := make([]domain.Sample, 0, len(places))
	for i, p := range places {
		n := g.noise.Noise2D(float64(i)*7.31+float64(kind)*101.7, t)
		drift := math.Max(-1, math.Min(1, 2*n))
		intensity := domain.NormalizeIntensity(p.Base + DriftAmplitude*drift)
		samples = append(samples, domain.NewSample(kind, p.Latitude, p.Longitude, intensity, p.Name, FormatValue(kind, intensity)))
	}
	return domain.Synthetic(kind, samples)
}

// FetchBatch implements the pipeline batch source contract. It never fails
// for a known metric.
func (g *Generator) FetchBatch(ctx context.Context, kind domain.MetricKind) (domain.DataSource, error) {
	if err := ctx.Err(); err != nil {
		return domain.DataSource{}, err
	}
	if !kind.Valid() {
		return domain.DataSource{}, fmt.Errorf("synthetic batch: %w: %v", domain.ErrUnknownMetric, kind)
	}
	return g.Generate(kind), nil
}

// FormatValue renders an intensity in the metric's display unit.
func FormatValue(kind domain.MetricKind, intensity float64) string {
	v := domain.NormalizeIntensity(intensity)
	switch kind {
	case domain.AQI:
		return fmt.Sprintf("%d AQI", int(math.Round(v*200)))
	case domain.Pollutant:
		return fmt.Sprintf("%d µg/m³", int(math.Round(v*100)))
	case domain.Fire:
		return fmt.Sprintf("%d MW", int(math.Round(v*500)))
	case domain.Temperature:
		return fmt.Sprintf("%d°C", int(math.Round(-10+v*50)))
	case domain.Humidity:
		return fmt.Sprintf("%d%%", int(math.Round(v*100)))
	default:
		return fmt.Sprintf("%.0f%%", v*100)
	}
}
