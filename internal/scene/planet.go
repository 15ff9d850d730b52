package scene

import (
	"image"
	"math"

	perlin "github.com/aquilax/go-perlin"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/geo"
)

// Default size of the procedural base texture.
const (
	PlanetWidth  = 1024
	PlanetHeight = 512
)

// Noise parameters for the planet surface.
const (
	planetAlpha   = 2
	planetBeta    = 2
	planetOctaves = 5
	planetFreq    = 1.6
	seaLevel      = 0.02
	iceLatitude   = 68
)

type terrainStop struct {
	height float64
	color  colorful.Color
}

var terrain = []terrainStop{
	{-1.0, colorscale.MustParseHex("#0a1a3f")},
	{-0.25, colorscale.MustParseHex("#123a6b")},
	{seaLevel, colorscale.MustParseHex("#2a6f9e")},
	{seaLevel + 0.02, colorscale.MustParseHex("#c2b280")},
	{0.12, colorscale.MustParseHex("#3f7a3a")},
	{0.30, colorscale.MustParseHex("#2e5a2a")},
	{0.45, colorscale.MustParseHex("#7a6a55")},
	{0.60, colorscale.MustParseHex("#eeeeee")},
}

var ice = colorscale.MustParseHex("#e8f0f8")

// GeneratePlanet renders an equirectangular planet texture. Noise is sampled
// on the unit sphere so the image tiles seamlessly across the antimeridian.
func GeneratePlanet(width, height int, seed int64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return img
	}
	p := perlin.NewPerlin(planetAlpha, planetBeta, planetOctaves, seed)

	for y := 0; y < height; y++ {
		lat := 90 - (float64(y)+0.5)/float64(height)*180
		for x := 0; x < width; x++ {
			lon := (float64(x)+0.5)/float64(width)*360 - 180
			v := geo.ToSphere(lat, lon, planetFreq)
			h := p.Noise3D(v.X+8, v.Y+8, v.Z+8)

			c := terrainColor(h)
			if polar := (math.Abs(lat) - iceLatitude) / (90 - iceLatitude); polar > 0 {
				c = c.BlendLab(ice, math.Min(1, polar*1.5))
			}
			r, g, b := c.Clamped().RGB255()
			off := img.PixOffset(x, y)
			img.Pix[off] = r
			img.Pix[off+1] = g
			img.Pix[off+2] = b
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

// terrainColor maps a noise height to a color by blending between the
// surrounding terrain stops.
func terrainColor(h float64) colorful.Color {
	if h <= terrain[0].height {
		return terrain[0].color
	}
	for i := 1; i < len(terrain); i++ {
		if h <= terrain[i].height {
			lo, hi := terrain[i-1], terrain[i]
			t := (h - lo.height) / (hi.height - lo.height)
			return lo.color.BlendLab(hi.color, t)
		}
	}
	return terrain[len(terrain)-1].color
}
