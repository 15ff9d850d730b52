package colorscale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

func TestBandIndex_Thresholds(t *testing.T) {
	tests := []struct {
		kind      domain.MetricKind
		intensity float64
		want      int
		name      string
	}{
		{domain.AQI, 0, 0, "green"},
		{domain.AQI, 0.3, 0, "green"},
		{domain.AQI, 0.31, 1, "amber"},
		{domain.AQI, 0.6, 1, "amber"},
		{domain.AQI, 0.7, 2, "orange"},
		{domain.AQI, 0.8, 2, "orange"},
		{domain.AQI, 0.81, 3, "red"},
		{domain.AQI, 1, 3, "red"},
		{domain.Pollutant, 0.25, 0, "amber"},
		{domain.Pollutant, 0.5, 1, "orange"},
		{domain.Pollutant, 0.75, 2, "red"},
		{domain.Pollutant, 0.9, 3, "purple"},
		{domain.Fire, 0.2, 0, "amber"},
		{domain.Fire, 0.21, 1, "orange"},
		{domain.Fire, 0.95, 3, "purple"},
		{domain.Temperature, 0.1, 0, "blue"},
		{domain.Temperature, 0.4, 1, "cyan-green"},
		{domain.Temperature, 0.6, 2, "amber"},
		{domain.Temperature, 0.76, 3, "red"},
		{domain.Humidity, 0.1, 0, "orange"},
		{domain.Humidity, 0.5, 1, "amber"},
		{domain.Humidity, 0.7, 2, "light-blue"},
		{domain.Humidity, 0.85, 3, "deep-blue"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BandIndex(tt.kind, tt.intensity))
			stop := ColorFor(tt.kind, tt.intensity)
			assert.Equal(t, tt.want, stop.Band)
			assert.Equal(t, tt.name, stop.Name)
		})
	}
}

func TestColorFor_AQILowMidHighAreDistinctBands(t *testing.T) {
	seen := map[int]string{}
	for _, i := range []float64{0.1, 0.5, 0.9} {
		stop := ColorFor(domain.AQI, i)
		seen[stop.Band] = stop.Name
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, map[int]string{0: "green", 1: "amber", 3: "red"}, seen)
}

func TestColorFor_SweepCrossesEveryThreshold(t *testing.T) {
	for _, kind := range domain.AllMetrics() {
		t.Run(kind.String(), func(t *testing.T) {
			thresholds := lookup(kind).thresholds

			for i, th := range thresholds {
				assert.Equal(t, i, ColorFor(kind, th).Band, "at threshold %v", th)
				assert.Equal(t, i+1, ColorFor(kind, th+1e-9).Band, "just above %v", th)
			}

			prev := ColorFor(kind, -1).Band
			assert.Equal(t, 0, prev)
			changes := 0
			for step := 1; step <= 3000; step++ {
				x := -1 + float64(step)/1000
				band := ColorFor(kind, x).Band
				require.GreaterOrEqual(t, band, prev, "band decreased at %v", x)
				if band != prev {
					changes++
				}
				prev = band
			}
			assert.Equal(t, len(thresholds), changes)
			assert.Equal(t, BandCount-1, prev)
		})
	}
}

func TestColorFor_ClampsIntensity(t *testing.T) {
	assert.Equal(t, ColorFor(domain.AQI, 0), ColorFor(domain.AQI, math.NaN()))
	assert.Equal(t, ColorFor(domain.AQI, 0), ColorFor(domain.AQI, -3))
	assert.Equal(t, ColorFor(domain.AQI, 1), ColorFor(domain.AQI, 7))
}

func TestColorFor_AlphaOrdering(t *testing.T) {
	for _, kind := range domain.AllMetrics() {
		for _, i := range []float64{0, 0.5, 1} {
			stop := ColorFor(kind, i)
			assert.Greater(t, stop.Center.A, stop.Mid.A)
			assert.Greater(t, stop.Mid.A, stop.Edge.A)
		}
	}
	low := ColorFor(domain.AQI, 0.05)
	high := ColorFor(domain.AQI, 0.25)
	assert.Less(t, low.Center.A, high.Center.A, "alpha grows with intensity inside a band")
}

func TestColorFor_BandColors(t *testing.T) {
	// The mid stop is the pure band color.
	stop := ColorFor(domain.AQI, 0.1)
	assert.Equal(t, uint8(0x00), stop.Mid.R)
	assert.Equal(t, uint8(0xff), stop.Mid.G)
	assert.Equal(t, uint8(0x88), stop.Mid.B)

	// First band has no previous band so its edge matches its mid hue.
	assert.Equal(t, Hex(stop.Mid), Hex(stop.Edge))
}

func TestColorFor_UnknownKindFallsBackToAQI(t *testing.T) {
	assert.Equal(t, ColorFor(domain.AQI, 0.5), ColorFor(domain.MetricKind(99), 0.5))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, "Good", StatusFor(domain.AQI, 0.2).Text)
	assert.Equal(t, "#4caf50", Hex(StatusFor(domain.AQI, 0.2).Color))
	assert.Equal(t, "Hazardous", StatusFor(domain.AQI, 0.95).Text)
	assert.Equal(t, "Extreme", StatusFor(domain.Fire, 0.9).Text)
	assert.Equal(t, "Hot", StatusFor(domain.Temperature, 0.8).Text)
	assert.Equal(t, "Dry", StatusFor(domain.Humidity, 0).Text)
}

func TestRadius(t *testing.T) {
	base, max := Sizes(domain.AQI)
	assert.Equal(t, 40.0, base)
	assert.Equal(t, 120.0, max)

	assert.InDelta(t, 40, Radius(domain.AQI, 0, 1024), 1e-9)
	assert.InDelta(t, 120, Radius(domain.AQI, 1, 1024), 1e-9)
	assert.InDelta(t, 40, Radius(domain.AQI, 0.5, 512), 1e-9)
}

func TestLegend(t *testing.T) {
	for _, kind := range domain.AllMetrics() {
		t.Run(kind.String(), func(t *testing.T) {
			entries := Legend(kind)
			require.Len(t, entries, BandCount)
			assert.Equal(t, 0.0, entries[0].Min)
			assert.Equal(t, 1.0, entries[BandCount-1].Max)
			for i := 1; i < BandCount; i++ {
				assert.Equal(t, entries[i-1].Max, entries[i].Min)
				assert.Equal(t, i, entries[i].Band)
			}
			for _, e := range entries {
				assert.Regexp(t, `^#[0-9a-f]{6}$`, e.Hex)
				assert.NotEmpty(t, e.Status)
			}
			assert.NotEmpty(t, Description(kind))
		})
	}
}

func TestMustParseHex(t *testing.T) {
	r, g, b := MustParseHex("#4caf50").RGB255()
	assert.Equal(t, []uint8{0x4c, 0xaf, 0x50}, []uint8{r, g, b})
	assert.Panics(t, func() { MustParseHex("teal") })
}
