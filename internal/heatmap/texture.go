package heatmap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// WrapMode controls how texture coordinates outside [0, 1] are resolved.
type WrapMode int

const (
	// Repeat tiles the texture, so u = 1.25 samples the same texel as u = 0.25.
	Repeat WrapMode = iota
	// ClampToEdge pins out-of-range coordinates to the nearest edge texel.
	ClampToEdge
)

func (m WrapMode) String() string {
	if m == Repeat {
		return "repeat"
	}
	return "clamp"
}

// Texture is an equirectangular heat image ready to be mapped onto the
// overlay sphere. Longitude wraps horizontally; latitude clamps at the poles.
type Texture struct {
	Image   *image.RGBA
	Kind    domain.MetricKind
	Version uint64
	WrapS   WrapMode
	WrapT   WrapMode
	Stamps  []colorscale.Stamp
	BuiltAt time.Time
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.Image.Rect.Dx() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.Image.Rect.Dy() }

// Sample returns the bilinearly filtered, alpha-premultiplied color at the
// normalized coordinate (u, v), honouring WrapS and WrapT.
func (t *Texture) Sample(u, v float64) color.RGBA {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return color.RGBA{}
	}

	x := u*float64(w) - 0.5
	y := v*float64(h) - 0.5
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0

	ix0, ix1 := resolve(int(x0), w, t.WrapS), resolve(int(x0)+1, w, t.WrapS)
	iy0, iy1 := resolve(int(y0), h, t.WrapT), resolve(int(y0)+1, h, t.WrapT)

	c00 := t.Image.RGBAAt(ix0, iy0)
	c10 := t.Image.RGBAAt(ix1, iy0)
	c01 := t.Image.RGBAAt(ix0, iy1)
	c11 := t.Image.RGBAAt(ix1, iy1)

	mix := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bottom := float64(c)*(1-fx) + float64(d)*fx
		return uint8(math.Round(top*(1-fy) + bottom*fy))
	}
	return color.RGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

// resolve maps an integer texel index onto [0, n) for the wrap mode.
func resolve(i, n int, mode WrapMode) int {
	if mode == Repeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EncodePNG writes the texture image as PNG.
func (t *Texture) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, t.Image); err != nil {
		return fmt.Errorf("encode heat texture: %w", err)
	}
	return nil
}

// Info is a lightweight description of a texture for event payloads.
type Info struct {
	Kind    domain.MetricKind `json:"kind"`
	Version uint64            `json:"version"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Stamps  int               `json:"stamps"`
	BuiltAt time.Time         `json:"built_at"`
}

// Info summarizes the texture.
func (t *Texture) Info() Info {
	return Info{
		Kind:    t.Kind,
		Version: t.Version,
		Width:   t.Width(),
		Height:  t.Height(),
		Stamps:  len(t.Stamps),
		BuiltAt: t.BuiltAt,
	}
}
