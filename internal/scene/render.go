package scene

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/golang/geo/r3"
	"golang.org/x/image/draw"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/geo"
	"github.com/couchcryptid/geo-heat-overlay/internal/marker"
)

// Render draws the current frame into dst. dst should match the viewport
// size; pixels outside the viewport are left untouched.
func (s *Scene) Render(dst *image.RGBA) {
	b := dst.Bounds().Intersect(image.Rect(0, 0, s.width, s.height))
	if b.Empty() {
		return
	}

	unproject := s.Camera.Unprojector()
	workers := runtime.GOMAXPROCS(0)
	rows := (b.Dy() + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := b.Min.Y; y0 < b.Max.Y; y0 += rows {
		y1 := min(y0+rows, b.Max.Y)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					ndcX, ndcY := camera.ToNDC(float64(x)+0.5, float64(y)+0.5, s.width, s.height)
					dst.SetRGBA(x, y, s.shade(unproject.Ray(ndcX, ndcY)))
				}
			}
		}(y0, y1)
	}
	wg.Wait()

	s.drawStars(dst, unproject, b)
	s.drawMarkers(dst)
}

// shade returns the color seen along a single ray: the lit planet, or the
// background behind the atmosphere halo, with the overlay composited on top.
// Where the ray misses the planet the overlay's back face shows through
// before its front face.
func (s *Scene) shade(ray camera.Ray) color.RGBA {
	out := Background
	if t, ok := ray.IntersectSphere(r3.Vector{}, BaseRadius); ok {
		out = s.shadePlanet(ray.At(t))
		if s.overlay != nil {
			if t0, _, ok := ray.SphereRoots(r3.Vector{}, OverlayRadius); ok && t0 >= 0 {
				out = over(s.overlayAt(ray.At(t0)), out)
			}
		}
		return out
	}
	out = atmosphereOver(ray, out)
	if s.overlay == nil {
		return out
	}
	if t0, t1, ok := ray.SphereRoots(r3.Vector{}, OverlayRadius); ok {
		if t1 >= 0 {
			out = over(s.overlayAt(ray.At(t1)), out)
		}
		if t0 >= 0 {
			out = over(s.overlayAt(ray.At(t0)), out)
		}
	}
	return out
}

func (s *Scene) shadePlanet(p r3.Vector) color.RGBA {
	normal := p.Normalize()
	u, v := geo.UV(geo.RotateY(p, -s.Rotation))
	albedo := s.planet.Sample(u, v)
	f := s.Lights.Lambert(normal)
	scale := func(c uint8) uint8 { return uint8(math.Min(255, math.Round(float64(c)*f))) }
	return color.RGBA{R: scale(albedo.R), G: scale(albedo.G), B: scale(albedo.B), A: 0xff}
}

// overlayAt returns the premultiplied overlay color at world point p with
// the overlay opacity applied.
func (s *Scene) overlayAt(p r3.Vector) color.RGBA {
	u, v := geo.UV(geo.RotateY(p, -s.Rotation))
	c := s.overlay.Sample(u, v)
	k := func(x uint8) uint8 { return uint8(math.Round(float64(x) * OverlayOpacity)) }
	return color.RGBA{R: k(c.R), G: k(c.G), B: k(c.B), A: k(c.A)}
}

// over composites premultiplied src over an opaque dst.
func over(src, dst color.RGBA) color.RGBA {
	if src.A == 0 {
		return dst
	}
	inv := 1 - float64(src.A)/255
	mix := func(s, d uint8) uint8 { return uint8(math.Min(255, math.Round(float64(s)+float64(d)*inv))) }
	return color.RGBA{R: mix(src.R, dst.R), G: mix(src.G, dst.G), B: mix(src.B, dst.B), A: 0xff}
}

type sprite struct {
	depth float64
	m     *marker.Marker
}

// drawMarkers paints pins and cards far to near. Markers hidden behind the
// planet are skipped.
func (s *Scene) drawMarkers(dst *image.RGBA) {
	cam := camera.ToR3(s.Camera.Position)
	var sprites []sprite
	for _, m := range s.Markers.Markers() {
		if s.occluded(cam, m.World) {
			continue
		}
		sprites = append(sprites, sprite{depth: cam.Sub(m.World).Norm(), m: m})
	}
	sort.Slice(sprites, func(i, j int) bool { return sprites[i].depth > sprites[j].depth })

	for _, sp := range sprites {
		s.drawPin(dst, sp.m)
		s.drawCard(dst, sp.m)
	}
}

// occluded reports whether the planet blocks the line of sight from cam to p.
func (s *Scene) occluded(cam, p r3.Vector) bool {
	d := p.Sub(cam)
	dist := d.Norm()
	if dist < 1e-12 {
		return false
	}
	ray := camera.Ray{Origin: cam, Dir: d.Mul(1 / dist)}
	t, ok := ray.IntersectSphere(r3.Vector{}, BaseRadius)
	return ok && t < dist
}

// screenRect projects a world-space quad onto the viewport.
func (s *Scene) screenRect(center, halfU, halfV r3.Vector) (image.Rectangle, bool) {
	cx, cy, _, ok := s.Camera.Project(center)
	if !ok {
		return image.Rectangle{}, false
	}
	ux, uy, _, okU := s.Camera.Project(center.Add(halfU))
	vx, vy, _, okV := s.Camera.Project(center.Add(halfV))
	if !okU || !okV {
		return image.Rectangle{}, false
	}
	px, py := camera.ToScreen(cx, cy, s.width, s.height)
	pux, puy := camera.ToScreen(ux, uy, s.width, s.height)
	pvx, pvy := camera.ToScreen(vx, vy, s.width, s.height)
	hw := math.Hypot(pux-px, puy-py)
	hh := math.Hypot(pvx-px, pvy-py)
	r := image.Rect(int(math.Round(px-hw)), int(math.Round(py-hh)), int(math.Round(px+hw)), int(math.Round(py+hh)))
	return r, !r.Empty()
}

func (s *Scene) drawCard(dst *image.RGBA, m *marker.Marker) {
	halfU, halfV := m.HalfExtents()
	r, ok := s.screenRect(m.World, halfU, halfV)
	if !ok || !r.Overlaps(dst.Bounds()) {
		return
	}
	draw.ApproxBiLinear.Scale(dst, r, m.Card, m.Card.Bounds(), draw.Over, nil)
}

func (s *Scene) drawPin(dst *image.RGBA, m *marker.Marker) {
	right := m.Right.Mul(marker.PinRadius)
	r, ok := s.screenRect(m.PinWorld, right, right)
	if !ok {
		return
	}
	c := colorscale.StatusFor(s.Markers.Kind(), m.Sample.Intensity).Color
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	radius := math.Max(1.5, float64(r.Dx())/2)
	area := image.Rect(int(cx-radius-1), int(cy-radius-1), int(cx+radius+2), int(cy+radius+2)).Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d > radius {
				continue
			}
			// Brighter toward the center so the pin reads as a ball.
			light := 0.6 + 0.4*(1-d/radius)
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(c.R) * light),
				G: uint8(float64(c.G) * light),
				B: uint8(float64(c.B) * light),
				A: 0xff,
			})
		}
	}
}
