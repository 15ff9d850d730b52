// Package scene holds the globe's renderable state: base planet, heat overlay,
// lights, camera, orbit controls and markers. It renders frames with a
// software ray caster and resolves pointer rays into sorted hits.
package scene

import (
	"image"
	"image/color"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
	"github.com/couchcryptid/geo-heat-overlay/internal/marker"
)

// Sphere radii and overlay blending.
const (
	BaseRadius     = 1.0
	OverlayRadius  = 1.01
	OverlayOpacity = 0.7
	// DefaultRotationSpeed is the idle spin in radians per second.
	DefaultRotationSpeed = 0.06
)

// Background is the clear color behind the globe.
var Background = color.RGBA{R: 0x00, G: 0x00, B: 0x11, A: 0xff}

// Object identifies what a pick ray hit.
type Object int

const (
	ObjectGlobe Object = iota
	ObjectOverlay
	ObjectCard
	ObjectPin
)

func (o Object) String() string {
	switch o {
	case ObjectGlobe:
		return "globe"
	case ObjectOverlay:
		return "overlay"
	case ObjectCard:
		return "card"
	case ObjectPin:
		return "pin"
	default:
		return "unknown"
	}
}

// Hit is one intersection of a pick ray with a globe child. Sample is nil for
// the spheres.
type Hit struct {
	Distance float64
	Point    r3.Vector
	Object   Object
	Sample   *domain.Sample
}

// Scene is not safe for concurrent use; the owning loop serializes access.
type Scene struct {
	Camera  *camera.Camera
	Orbit   *camera.Orbit
	Markers *marker.Layer
	Lights  Lights

	Rotation      float64
	RotationSpeed float64
	// Stars are drawn behind the globe. Clearing them leaves a plain
	// background.
	Stars []Star

	planet  *heatmap.Texture
	overlay *heatmap.Texture
	width   int
	height  int
}

// New builds a scene for a viewport of the given size with a procedural
// planet generated from seed.
func New(width, height int, seed int64) (*Scene, error) {
	layer, err := marker.NewLayer()
	if err != nil {
		return nil, err
	}
	cam := camera.New(1)
	cam.SetViewport(width, height)
	s := &Scene{
		Camera:        cam,
		Orbit:         camera.NewOrbit(cam.Position),
		Markers:       layer,
		Lights:        DefaultLights(),
		RotationSpeed: DefaultRotationSpeed,
		Stars:         GenerateStars(DefaultStarCount, seed),
		planet: &heatmap.Texture{
			Image: GeneratePlanet(PlanetWidth, PlanetHeight, seed),
			WrapS: heatmap.Repeat,
			WrapT: heatmap.ClampToEdge,
		},
		width:  width,
		height: height,
	}
	return s, nil
}

// Resize changes the viewport size.
func (s *Scene) Resize(width, height int) {
	s.width, s.height = width, height
	s.Camera.SetViewport(width, height)
}

// Size returns the viewport size in pixels.
func (s *Scene) Size() (width, height int) { return s.width, s.height }

// SetOverlay swaps the heat texture. A nil texture hides the overlay.
func (s *Scene) SetOverlay(t *heatmap.Texture) { s.overlay = t }

// Overlay returns the current heat texture, possibly nil.
func (s *Scene) Overlay() *heatmap.Texture { return s.overlay }

// Planet returns the base planet texture.
func (s *Scene) Planet() *heatmap.Texture { return s.planet }

// SetMarkers rebuilds the marker layer for a new sample set.
func (s *Scene) SetMarkers(samples []domain.Sample, kind domain.MetricKind) {
	s.Markers.Refresh(samples, kind)
	s.Markers.Update(camera.ToR3(s.Camera.Position), s.Rotation)
}

// Advance spins the globe by dt seconds of idle rotation.
func (s *Scene) Advance(dt float64) {
	s.Rotation += s.RotationSpeed * dt
}

// UpdateMarkers rescales and reorients markers for the current camera and
// rotation.
func (s *Scene) UpdateMarkers() {
	s.Markers.Update(camera.ToR3(s.Camera.Position), s.Rotation)
}

// Pick casts a ray through the NDC point and returns every hit, nearest
// first.
func (s *Scene) Pick(ndcX, ndcY float64) []Hit {
	return s.Intersect(s.Camera.Ray(ndcX, ndcY))
}

// Intersect returns all globe children the ray passes through, nearest
// first: the base sphere, both faces of the overlay and every marker part.
func (s *Scene) Intersect(ray camera.Ray) []Hit {
	var hits []Hit
	if t, ok := ray.IntersectSphere(r3.Vector{}, BaseRadius); ok {
		hits = append(hits, Hit{Distance: t, Point: ray.At(t), Object: ObjectGlobe})
	}
	if s.overlay != nil {
		if t0, t1, ok := ray.SphereRoots(r3.Vector{}, OverlayRadius); ok {
			for _, t := range []float64{t0, t1} {
				if t >= 0 {
					hits = append(hits, Hit{Distance: t, Point: ray.At(t), Object: ObjectOverlay})
				}
			}
		}
	}
	for _, h := range s.Markers.Intersect(ray) {
		obj := ObjectCard
		if h.Part == marker.PartPin {
			obj = ObjectPin
		}
		hits = append(hits, Hit{Distance: h.Distance, Point: h.Point, Object: obj, Sample: h.Sample})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// FirstSample returns the nearest hit that carries a sample.
func FirstSample(hits []Hit) (Hit, bool) {
	for _, h := range hits {
		if h.Sample != nil {
			return h, true
		}
	}
	return Hit{}, false
}

// NewFrame allocates a frame buffer matching the viewport.
func (s *Scene) NewFrame() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, s.width, s.height))
}
