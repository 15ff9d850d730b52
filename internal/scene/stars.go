package scene

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
)

// Atmosphere shell drawn around the planet. Only its back face is visible,
// so it shows as a thin halo around the limb.
const (
	AtmosphereRadius  = 1.02
	AtmosphereOpacity = 0.1
)

// AtmosphereColor tints the halo.
var AtmosphereColor = color.RGBA{R: 0x4a, G: 0x90, B: 0xe2, A: 0xff}

// Star field defaults.
const (
	DefaultStarCount = 1000
	starDistance     = 500
	starStream       = 0x5eed57a2
)

// Star is a fixed point of light in world space. Stars do not follow the
// globe rotation.
type Star struct {
	Position   r3.Vector
	Brightness uint8
}

// GenerateStars scatters n stars uniformly over a distant shell.
func GenerateStars(n int, seed int64) []Star {
	rng := rand.New(rand.NewPCG(uint64(seed), starStream))
	stars := make([]Star, n)
	for i := range stars {
		z := rng.Float64()*2 - 1
		a := rng.Float64() * 2 * math.Pi
		r := math.Sqrt(1 - z*z)
		stars[i] = Star{
			Position:   r3.Vector{X: r * math.Cos(a), Y: r * math.Sin(a), Z: z}.Mul(starDistance),
			Brightness: uint8(0x90 + rng.IntN(0x3d)),
		}
	}
	return stars
}

// atmosphereOver composites the atmosphere's back face over out when the ray
// passes through the shell.
func atmosphereOver(ray camera.Ray, out color.RGBA) color.RGBA {
	if _, t1, ok := ray.SphereRoots(r3.Vector{}, AtmosphereRadius); ok && t1 >= 0 {
		k := func(x uint8) uint8 { return uint8(math.Round(float64(x) * AtmosphereOpacity)) }
		out = over(color.RGBA{R: k(AtmosphereColor.R), G: k(AtmosphereColor.G), B: k(AtmosphereColor.B), A: k(0xff)}, out)
	}
	return out
}

// drawStars lights one pixel per visible star. Stars behind the planet or
// its atmosphere are skipped.
func (s *Scene) drawStars(dst *image.RGBA, unproject camera.Unprojector, b image.Rectangle) {
	for _, st := range s.Stars {
		ndcX, ndcY, depth, ok := s.Camera.Project(st.Position)
		if !ok || depth < -1 || depth > 1 {
			continue
		}
		fx, fy := camera.ToScreen(ndcX, ndcY, s.width, s.height)
		p := image.Pt(int(math.Floor(fx)), int(math.Floor(fy)))
		if !p.In(b) {
			continue
		}
		cx, cy := camera.ToNDC(float64(p.X)+0.5, float64(p.Y)+0.5, s.width, s.height)
		if _, t1, hit := unproject.Ray(cx, cy).SphereRoots(r3.Vector{}, AtmosphereRadius); hit && t1 >= 0 {
			continue
		}
		c := dst.RGBAAt(p.X, p.Y)
		c.R = max(c.R, st.Brightness)
		c.G = max(c.G, st.Brightness)
		c.B = max(c.B, st.Brightness)
		dst.SetRGBA(p.X, p.Y, c)
	}
}
