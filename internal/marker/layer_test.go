package marker

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

func newTestLayer(t *testing.T, samples ...domain.Sample) *Layer {
	t.Helper()
	l, err := NewLayer()
	require.NoError(t, err)
	l.Refresh(samples, domain.AQI)
	return l
}

// lat 0, lon -90 faces a camera on +Z when the globe is not rotated.
func facingSample(label string) domain.Sample {
	return domain.NewSample(domain.AQI, 0, -90, 0.7, label, "120 AQI")
}

func TestLayer_RefreshReplacesMarkers(t *testing.T) {
	l := newTestLayer(t, facingSample("a"), facingSample("b"))
	require.Equal(t, 2, l.Len())

	l.Refresh([]domain.Sample{facingSample("c")}, domain.Fire)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "c", l.Markers()[0].Sample.Label)
	assert.Equal(t, domain.Fire, l.Kind())

	l.Refresh(nil, domain.Fire)
	assert.Equal(t, 0, l.Len())
}

func TestLayer_RefreshIsIdempotent(t *testing.T) {
	samples := []domain.Sample{
		facingSample("a"),
		domain.NewSample(domain.AQI, 35, 139, 0.2, "Tokyo", "40 AQI"),
		domain.NewSample(domain.AQI, -33, 151, 0.95, "Sydney", "240 AQI"),
	}
	l := newTestLayer(t, samples...)
	first := l.Markers()
	values := make([]string, len(first))
	cards := make([][]byte, len(first))
	for i, m := range first {
		values[i] = m.Sample.DisplayValue
		cards[i] = append([]byte(nil), m.Card.Pix...)
	}

	l.Refresh(samples, domain.AQI)

	require.Equal(t, len(samples), l.Len())
	for i, m := range l.Markers() {
		assert.Equal(t, values[i], m.Sample.DisplayValue)
		assert.Equal(t, cards[i], m.Card.Pix, "card %d pixels differ", i)
		assert.Equal(t, first[i].Local, m.Local)
	}
}

func TestLayer_RefreshCopiesSamples(t *testing.T) {
	samples := []domain.Sample{facingSample("a")}
	l := newTestLayer(t, samples...)

	samples[0].Label = "mutated"
	assert.Equal(t, "a", l.Markers()[0].Sample.Label)
}

func TestLayer_MarkerGeometry(t *testing.T) {
	l := newTestLayer(t, facingSample("a"))
	m := l.Markers()[0]

	assert.InDelta(t, PinAltitude, m.Pin.Norm(), 1e-9)
	assert.InDelta(t, PinAltitude+CardLift, m.Local.Norm(), 1e-9)
	assert.InDelta(t, 1, m.Local.Normalize().Z, 1e-9)
	require.NotNil(t, m.Card)
	assert.Equal(t, CardWidth, m.Card.Bounds().Dx())
}

func TestScaleFor(t *testing.T) {
	tests := []struct {
		name string
		dist float64
		want float64
	}{
		{"reference distance", ReferenceDistance, BaseScale},
		{"far away stays full size", 10, BaseScale},
		{"halfway shrinks", ReferenceDistance / 2, BaseScale / 2},
		{"very close clamps", 0.01, BaseScale * MinScaleFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScaleFor(tt.dist), 1e-9)
		})
	}
}

func TestLayer_UpdateFacesCamera(t *testing.T) {
	l := newTestLayer(t, facingSample("a"))
	cam := r3.Vector{Z: 3}

	l.Update(cam, 0)
	m := l.Markers()[0]

	halfU, halfV := m.HalfExtents()
	normal := halfU.Cross(halfV).Normalize()
	toCam := cam.Sub(m.World).Normalize()
	assert.InDelta(t, 1, normal.Dot(toCam), 1e-9)
	assert.InDelta(t, 1, m.Up.Y, 1e-9)
	assert.InDelta(t, BaseScale, m.Scale, 1e-9)
}

func TestLayer_UpdateFollowsRotation(t *testing.T) {
	l := newTestLayer(t, facingSample("a"))

	l.Update(r3.Vector{Z: 3}, math.Pi/2)
	m := l.Markers()[0]

	// A quarter turn about +Y carries +Z to +X.
	assert.InDelta(t, PinAltitude+CardLift, m.World.X, 1e-9)
	assert.InDelta(t, 0, m.World.Z, 1e-9)
	assert.InDelta(t, PinAltitude, m.PinWorld.X, 1e-9)
}

func TestLayer_IntersectCard(t *testing.T) {
	l := newTestLayer(t, facingSample("a"))
	c := camera.New(1)
	l.Update(camera.ToR3(c.Position), 0)

	// Project the card center and cast a ray through it.
	x, y, _, ok := c.Project(l.Markers()[0].World)
	require.True(t, ok)
	hits := l.Intersect(c.Ray(x, y))

	require.NotEmpty(t, hits)
	assert.Equal(t, PartCard, hits[0].Part)
	assert.Equal(t, "a", hits[0].Sample.Label)
}

func TestLayer_IntersectPin(t *testing.T) {
	l := newTestLayer(t, domain.NewSample(domain.AQI, 0, 0, 0.5, "side", ""))
	l.Update(r3.Vector{Z: 3}, 0)

	// Aim straight at the pin from outside along its own normal.
	pin := l.Markers()[0].PinWorld
	ray := camera.Ray{Origin: pin.Mul(3), Dir: pin.Mul(-1).Normalize()}
	hits := l.Intersect(ray)

	require.NotEmpty(t, hits)
	var pinHit bool
	for _, h := range hits {
		if h.Part == PartPin {
			pinHit = true
			assert.InDelta(t, pin.Norm()*3-pin.Norm()-PinRadius, h.Distance, 1e-6)
		}
	}
	assert.True(t, pinHit)
}

func TestLayer_IntersectSortedAndMiss(t *testing.T) {
	l := newTestLayer(t, facingSample("a"), domain.NewSample(domain.AQI, 0, 90, 0.5, "back", ""))
	c := camera.New(1)
	c.Position = mgl64.Vec3{0, 0, 3}
	l.Update(r3.Vector{Z: 3}, 0)

	x, y, _, ok := c.Project(l.Markers()[0].World)
	require.True(t, ok)
	hits := l.Intersect(c.Ray(x, y))
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}

	miss := l.Intersect(camera.Ray{Origin: r3.Vector{X: 5, Z: 3}, Dir: r3.Vector{Z: -1}})
	assert.Empty(t, miss)
}
