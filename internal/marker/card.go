package marker

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// Card dimensions in pixels.
const (
	CardWidth  = 160
	CardHeight = 64
	cardBorder = 2
)

var (
	cardTop     = color.NRGBA{R: 10, G: 10, B: 10, A: 242}
	cardBottom  = color.NRGBA{R: 20, G: 20, B: 20, A: 242}
	titleColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	statusColor = color.NRGBA{R: 208, G: 208, B: 208, A: 255}
	nameColor   = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
)

// Faces holds the font faces used on cards. Faces are not safe for
// concurrent use, so each Layer owns its own set.
type Faces struct {
	Title  font.Face
	Value  font.Face
	Status font.Face
	Name   font.Face
}

// NewFaces loads the Go fonts at card sizes.
func NewFaces() (*Faces, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	face := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	var faces Faces
	if faces.Title, err = face(bold, 10); err != nil {
		return nil, fmt.Errorf("title face: %w", err)
	}
	if faces.Value, err = face(bold, 14); err != nil {
		return nil, fmt.Errorf("value face: %w", err)
	}
	if faces.Status, err = face(regular, 9); err != nil {
		return nil, fmt.Errorf("status face: %w", err)
	}
	if faces.Name, err = face(regular, 8); err != nil {
		return nil, fmt.Errorf("name face: %w", err)
	}
	return &faces, nil
}

// RenderCard draws the info card for a sample: metric title, value in the
// status color, status text and place label over a dark gradient with a
// status-colored border.
func RenderCard(faces *Faces, s *domain.Sample, kind domain.MetricKind) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	status := colorscale.StatusFor(kind, s.Intensity)

	for y := 0; y < CardHeight; y++ {
		c := lerp(cardTop, cardBottom, float64(y)/float64(CardHeight-1))
		for x := 0; x < CardWidth; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	for i := 0; i < cardBorder; i++ {
		for x := i; x < CardWidth-i; x++ {
			img.SetNRGBA(x, i, status.Color)
			img.SetNRGBA(x, CardHeight-1-i, status.Color)
		}
		for y := i; y < CardHeight-i; y++ {
			img.SetNRGBA(i, y, status.Color)
			img.SetNRGBA(CardWidth-1-i, y, status.Color)
		}
	}

	value := s.DisplayValue
	if value == "" {
		value = fmt.Sprintf("%.0f%%", s.Intensity*100)
	}
	drawCentered(img, faces.Title, kind.Label(), 14, titleColor)
	drawCentered(img, faces.Value, value, 30, status.Color)
	drawCentered(img, faces.Status, status.Text, 42, statusColor)
	drawCentered(img, faces.Name, s.Label, 54, nameColor)
	return img
}

func drawCentered(dst *image.NRGBA, face font.Face, text string, baseline int, c color.NRGBA) {
	if text == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	text = truncate(d, text, CardWidth-2*cardBorder-8)
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(CardWidth/2) - width/2,
		Y: fixed.I(baseline),
	}
	d.DrawString(text)
}

// truncate shortens text with an ellipsis until it fits maxWidth pixels.
func truncate(d *font.Drawer, text string, maxWidth int) string {
	limit := fixed.I(maxWidth)
	if d.MeasureString(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if d.MeasureString(candidate) <= limit {
			return candidate
		}
	}
	return ""
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	l := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}
