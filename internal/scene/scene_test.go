package scene

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
)

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	s, err := New(64, 36, 7)
	require.NoError(t, err)
	return s
}

func solidTexture(c color.RGBA) *heatmap.Texture {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &heatmap.Texture{Image: img, WrapS: heatmap.Repeat, WrapT: heatmap.ClampToEdge}
}

func TestGeneratePlanet_DeterministicAndOpaque(t *testing.T) {
	a := GeneratePlanet(32, 16, 3)
	b := GeneratePlanet(32, 16, 3)
	c := GeneratePlanet(32, 16, 4)

	assert.Equal(t, a.Pix, b.Pix)
	assert.NotEqual(t, a.Pix, c.Pix)
	for i := 3; i < len(a.Pix); i += 4 {
		require.Equal(t, uint8(0xff), a.Pix[i])
	}
}

func TestGeneratePlanet_EmptySize(t *testing.T) {
	img := GeneratePlanet(0, 10, 1)
	assert.True(t, img.Bounds().Empty())
}

func TestTerrainColor_Bounds(t *testing.T) {
	assert.Equal(t, terrain[0].color, terrainColor(-5))
	assert.Equal(t, terrain[len(terrain)-1].color, terrainColor(5))
}

func TestLights_Lambert(t *testing.T) {
	l := DefaultLights()

	toSun := l.Directional[0].Direction
	lit := l.Lambert(toSun)
	dark := l.Lambert(toSun.Mul(-1))

	assert.Greater(t, lit, dark)
	assert.InDelta(t, l.Ambient+1.2, lit, 0.05)
	assert.GreaterOrEqual(t, dark, l.Ambient)
}

func TestScene_RenderGlobeAndBackground(t *testing.T) {
	s := newTestScene(t)
	s.Stars = nil
	frame := s.NewFrame()

	s.Render(frame)

	assert.Equal(t, Background, frame.RGBAAt(0, 0))
	center := frame.RGBAAt(32, 18)
	assert.NotEqual(t, Background, center)
	assert.Equal(t, uint8(0xff), center.A)
}

func TestScene_RenderCompositesOverlay(t *testing.T) {
	s := newTestScene(t)
	s.Stars = nil
	plain := s.NewFrame()
	s.Render(plain)

	s.SetOverlay(solidTexture(color.RGBA{R: 255, A: 255}))
	tinted := s.NewFrame()
	s.Render(tinted)

	c := tinted.RGBAAt(32, 18)
	assert.GreaterOrEqual(t, c.R, uint8(178))
	assert.LessOrEqual(t, int(c.G), int(plain.RGBAAt(32, 18).G))
	assert.Equal(t, Background, tinted.RGBAAt(0, 0))
}

func TestScene_RenderDrawsMarkers(t *testing.T) {
	s := newTestScene(t)
	bare := s.NewFrame()
	s.Render(bare)

	s.SetMarkers([]domain.Sample{domain.NewSample(domain.AQI, 0, -90, 0.9, "Front", "180 AQI")}, domain.AQI)
	withMarker := s.NewFrame()
	s.Render(withMarker)

	assert.NotEqual(t, bare.Pix, withMarker.Pix)
}

func TestScene_OccludedMarkerNotDrawn(t *testing.T) {
	s := newTestScene(t)
	bare := s.NewFrame()
	s.Render(bare)

	// lon 90 is on -Z, directly behind the planet.
	s.SetMarkers([]domain.Sample{domain.NewSample(domain.AQI, 0, 90, 0.9, "Back", "")}, domain.AQI)
	hidden := s.NewFrame()
	s.Render(hidden)

	assert.Equal(t, bare.Pix, hidden.Pix)
}

func TestScene_PickSortedWithSample(t *testing.T) {
	s := newTestScene(t)
	s.SetOverlay(solidTexture(color.RGBA{}))
	s.SetMarkers([]domain.Sample{domain.NewSample(domain.Fire, 0, -90, 0.4, "Front", "")}, domain.Fire)

	hits := s.Pick(0, 0)

	require.GreaterOrEqual(t, len(hits), 4)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
	first, ok := FirstSample(hits)
	require.True(t, ok)
	assert.Equal(t, "Front", first.Sample.Label)
	assert.Equal(t, ObjectCard, first.Object)
}

func TestScene_PickGlobeOnly(t *testing.T) {
	s := newTestScene(t)

	hits := s.Pick(0, 0)

	require.Len(t, hits, 1)
	assert.Equal(t, ObjectGlobe, hits[0].Object)
	assert.InDelta(t, 1, hits[0].Point.Z, 1e-6)
	_, ok := FirstSample(hits)
	assert.False(t, ok)
}

func TestScene_AdvanceRotatesTextureLookup(t *testing.T) {
	s := newTestScene(t)
	s.RotationSpeed = math.Pi / 2

	s.Advance(1)
	assert.InDelta(t, math.Pi/2, s.Rotation, 1e-12)

	s.SetMarkers([]domain.Sample{domain.NewSample(domain.AQI, 0, -90, 0.5, "a", "")}, domain.AQI)
	m := s.Markers.Markers()[0]
	assert.Greater(t, m.World.X, 1.0)
	assert.InDelta(t, 0, m.World.Dot(r3.Vector{Z: 1}), 1e-9)
}

func TestScene_Resize(t *testing.T) {
	s := newTestScene(t)
	s.Resize(200, 100)

	w, h := s.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)
	assert.InDelta(t, 2, s.Camera.Aspect, 1e-12)
	assert.Equal(t, image.Rect(0, 0, 200, 100), s.NewFrame().Bounds())
}

func TestObject_String(t *testing.T) {
	assert.Equal(t, "globe", ObjectGlobe.String())
	assert.Equal(t, "pin", ObjectPin.String())
	assert.Equal(t, "unknown", Object(99).String())
}

func TestGenerateStars(t *testing.T) {
	a := GenerateStars(200, 5)
	b := GenerateStars(200, 5)
	c := GenerateStars(200, 6)

	require.Len(t, a, 200)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, st := range a {
		assert.InDelta(t, starDistance, st.Position.Norm(), 1e-6)
		assert.GreaterOrEqual(t, st.Brightness, uint8(0x90))
		assert.LessOrEqual(t, st.Brightness, uint8(0xcc))
	}
}

func TestScene_StarsOnlyInOpenSky(t *testing.T) {
	s := newTestScene(t)
	stars := s.Stars
	s.Stars = nil
	plain := s.NewFrame()
	s.Render(plain)

	s.Stars = stars
	starry := s.NewFrame()
	s.Render(starry)

	unproject := s.Camera.Unprojector()
	lit := 0
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			if plain.RGBAAt(x, y) == starry.RGBAAt(x, y) {
				continue
			}
			lit++
			ndcX, ndcY := camera.ToNDC(float64(x)+0.5, float64(y)+0.5, 64, 36)
			_, t1, hit := unproject.Ray(ndcX, ndcY).SphereRoots(r3.Vector{}, AtmosphereRadius)
			assert.False(t, hit && t1 >= 0, "star drawn over the globe at (%d,%d)", x, y)
		}
	}
	assert.Positive(t, lit)
}

func TestAtmosphereHalo(t *testing.T) {
	limb := camera.Ray{Origin: r3.Vector{X: 1.015, Z: 3}, Dir: r3.Vector{Z: -1}}
	halo := atmosphereOver(limb, Background)
	assert.NotEqual(t, Background, halo)
	assert.Greater(t, halo.B, Background.B)
	assert.Equal(t, uint8(0xff), halo.A)

	space := camera.Ray{Origin: r3.Vector{X: 1.5, Z: 3}, Dir: r3.Vector{Z: -1}}
	assert.Equal(t, Background, atmosphereOver(space, Background))
}
