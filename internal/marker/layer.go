// Package marker keeps one billboard info card and one pin per sample on the
// globe, rescales them as the camera moves and resolves pointer rays to the
// sample under the cursor.
package marker

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/geo"
)

// Geometry in globe units (the base sphere has radius 1).
const (
	// BaseScale is the card width at full scale.
	BaseScale = 0.4
	// CardAspect is card height over width.
	CardAspect = float64(CardHeight) / float64(CardWidth)
	// CardLift raises the card above its pin along the local up.
	CardLift = 0.3
	// PinRadius is the radius of the pickable pin sphere.
	PinRadius = 0.02
	// PinAltitude places pins just above the heat overlay.
	PinAltitude = 1.02
	// ReferenceDistance is the camera distance at which cards are full size.
	ReferenceDistance = camera.DefaultDistance
	// MinScaleFactor bounds how small cards get when the camera is close.
	MinScaleFactor = 0.1
)

// Part identifies which piece of a marker a ray hit.
type Part int

const (
	PartCard Part = iota
	PartPin
)

// Marker is the visual for one sample. Sample points into the layer's own
// copy of the sample set and must not be retained past the next Refresh.
type Marker struct {
	Sample *domain.Sample
	Card   *image.NRGBA

	// Globe-local geometry.
	Pin   r3.Vector
	Local r3.Vector

	// World-space state recomputed by Update.
	World    r3.Vector
	PinWorld r3.Vector
	Scale    float64
	Right    r3.Vector
	Up       r3.Vector
}

// HalfExtents returns the card's half-width and half-height vectors in world
// space.
func (m *Marker) HalfExtents() (halfU, halfV r3.Vector) {
	return m.Right.Mul(m.Scale / 2), m.Up.Mul(m.Scale * CardAspect / 2)
}

// Hit is one ray intersection with a marker.
type Hit struct {
	Distance float64
	Point    r3.Vector
	Part     Part
	Marker   *Marker
	Sample   *domain.Sample
}

// Layer owns all markers for the current sample set.
type Layer struct {
	faces   *Faces
	samples []domain.Sample
	markers []*Marker
	kind    domain.MetricKind
}

// NewLayer loads card fonts and returns an empty layer.
func NewLayer() (*Layer, error) {
	faces, err := NewFaces()
	if err != nil {
		return nil, err
	}
	return &Layer{faces: faces}, nil
}

// Refresh discards every marker and builds one per sample.
func (l *Layer) Refresh(samples []domain.Sample, kind domain.MetricKind) {
	l.kind = kind
	l.samples = make([]domain.Sample, len(samples))
	copy(l.samples, samples)
	l.markers = make([]*Marker, len(l.samples))

	for i := range l.samples {
		s := &l.samples[i]
		up := geo.SurfaceNormal(s.Latitude, s.Longitude)
		pin := up.Mul(PinAltitude)
		l.markers[i] = &Marker{
			Sample: s,
			Card:   RenderCard(l.faces, s, kind),
			Pin:    pin,
			Local:  pin.Add(up.Mul(CardLift)),
			Scale:  BaseScale,
			Right:  r3.Vector{X: 1},
			Up:     r3.Vector{Y: 1},
		}
	}
}

// Markers returns the current markers in sample order.
func (l *Layer) Markers() []*Marker { return l.markers }

// Len returns the number of markers.
func (l *Layer) Len() int { return len(l.markers) }

// Kind is the metric the cards were rendered for.
func (l *Layer) Kind() domain.MetricKind { return l.kind }

// ScaleFor returns the card width for a camera at distance dist from the
// globe center. Cards shrink as the camera approaches.
func ScaleFor(dist float64) float64 {
	return BaseScale * math.Max(MinScaleFactor, math.Min(1, dist/ReferenceDistance))
}

// Update places every marker for the globe rotation, rescales it for the
// camera distance and turns it to face the camera.
func (l *Layer) Update(camPos r3.Vector, rotation float64) {
	scale := ScaleFor(camPos.Norm())
	for _, m := range l.markers {
		m.World = geo.RotateY(m.Local, rotation)
		m.PinWorld = geo.RotateY(m.Pin, rotation)
		m.Scale = scale
		m.Right, m.Up = billboardBasis(camPos, m.World)
	}
}

// billboardBasis returns right and up vectors for a quad at p facing cam,
// keeping the card upright relative to world +Y where possible.
func billboardBasis(cam, p r3.Vector) (right, up r3.Vector) {
	forward := cam.Sub(p)
	if forward.Norm() < 1e-12 {
		return r3.Vector{X: 1}, r3.Vector{Y: 1}
	}
	forward = forward.Normalize()
	worldUp := r3.Vector{Y: 1}
	right = worldUp.Cross(forward)
	if right.Norm() < 1e-9 {
		right = r3.Vector{X: 1}
	}
	right = right.Normalize()
	up = forward.Cross(right).Normalize()
	return right, up
}

// Intersect returns every card and pin the ray passes through, nearest
// first.
func (l *Layer) Intersect(ray camera.Ray) []Hit {
	var hits []Hit
	for _, m := range l.markers {
		halfU, halfV := m.HalfExtents()
		if t, ok := ray.IntersectQuad(m.World, halfU, halfV); ok {
			hits = append(hits, Hit{Distance: t, Point: ray.At(t), Part: PartCard, Marker: m, Sample: m.Sample})
		}
		if t, ok := ray.IntersectSphere(m.PinWorld, PinRadius); ok {
			hits = append(hits, Hit{Distance: t, Point: ray.At(t), Part: PartPin, Marker: m, Sample: m.Sample})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
