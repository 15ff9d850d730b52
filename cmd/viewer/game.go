package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jonboulle/clockwork"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
)

const (
	// dragThreshold separates a click from the start of a drag, in pixels.
	dragThreshold = 3
	// dragSpeed converts pixels of drag to radians of orbit.
	dragSpeed = 0.005
	zoomStep  = 0.1
)

var errQuit = errors.New("quit")

var metricKeys = map[ebiten.Key]domain.MetricKind{
	ebiten.Key1: domain.AQI,
	ebiten.Key2: domain.Pollutant,
	ebiten.Key3: domain.Fire,
	ebiten.Key4: domain.Temperature,
	ebiten.Key5: domain.Humidity,
}

var (
	panelColor = color.NRGBA{0x10, 0x14, 0x24, 0xd8}
	textColor  = color.White
)

// game adapts the globe App to ebiten's Update/Draw loop. The App's own
// loop is not started; Update drains posted work and ticks it instead.
type game struct {
	ctx   context.Context
	app   *globe.App
	clock clockwork.Clock

	width, height int
	frame         *ebiten.Image
	face          *text.GoTextFace
	small         *text.GoTextFace

	pressX, pressY int
	lastX, lastY   int
	dragging       bool
	inside         bool
}

func newGame(ctx context.Context, app *globe.App, clock clockwork.Clock, width, height int) (*game, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	g := &game{
		ctx:    ctx,
		app:    app,
		clock:  clock,
		width:  width,
		height: height,
		frame:  ebiten.NewImage(width, height),
		face:   &text.GoTextFace{Source: src, Size: 14},
		small:  &text.GoTextFace{Source: src, Size: 11},
	}
	app.Attach(g)
	return g, nil
}

// Present implements globe.Surface.
func (g *game) Present(frame *image.RGBA) {
	if frame.Rect.Dx() != g.width || frame.Rect.Dy() != g.height {
		return
	}
	g.frame.WritePixels(frame.Pix)
}

func (g *game) Update() error {
	if g.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}
	for key, kind := range metricKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.app.SetActiveMetric(kind)
		}
	}
	g.handlePointer()

	g.app.RunPending()
	g.app.Tick(g.clock.Now())
	return nil
}

func (g *game) handlePointer() {
	x, y := ebiten.CursorPosition()
	inside := x >= 0 && y >= 0 && x < g.width && y < g.height
	if !inside {
		if g.inside {
			g.app.PointerLeave()
		}
		g.inside = false
		g.dragging = false
		return
	}
	g.inside = true
	ndcX, ndcY := camera.ToNDC(float64(x), float64(y), g.width, g.height)

	if _, wy := ebiten.Wheel(); wy != 0 {
		g.app.Zoom(1 - wy*zoomStep)
	}

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.pressX, g.pressY = x, y
		g.dragging = false
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		if !g.dragging && (abs(x-g.pressX) > dragThreshold || abs(y-g.pressY) > dragThreshold) {
			g.dragging = true
		}
		if g.dragging {
			g.app.Drag(-float64(x-g.lastX)*dragSpeed, -float64(y-g.lastY)*dragSpeed)
		}
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		if !g.dragging {
			g.app.PointerClick(ndcX, ndcY)
		}
		g.dragging = false
	}

	if !g.dragging && (x != g.lastX || y != g.lastY) {
		g.app.PointerMove(ndcX, ndcY)
	}
	g.lastX, g.lastY = x, y
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.frame, nil)
	g.drawLegend(screen)
	g.drawTooltip(screen)
}

func (g *game) drawLegend(screen *ebiten.Image) {
	kind := g.app.ActiveMetric()
	legend := colorscale.Legend(kind)
	const pad, row = 8.0, 16.0
	w, h := 210.0, pad*2+row*float64(len(legend)+2)
	x, y := 12.0, float64(g.height)-h-12

	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), panelColor, false)
	drawText(screen, kind.Label(), g.face, x+pad, y+pad, textColor)
	for i, e := range legend {
		ry := y + pad + row*float64(i+1) + 2
		vector.DrawFilledRect(screen, float32(x+pad), float32(ry+2), 10, 10, e.Color, false)
		drawText(screen, e.Name, g.small, x+pad+16, ry, textColor)
	}
	drawText(screen, "1-5 metric · drag orbit · wheel zoom", g.small, x+pad, y+h-pad-row+2, color.Gray{0xa0})
}

func (g *game) drawTooltip(screen *ebiten.Image) {
	tip := g.app.Tooltip()
	if !tip.Visible {
		return
	}
	lines := []string{tip.Label, tip.Value, tip.Status}
	var w float64
	for _, l := range lines {
		lw, _ := text.Measure(l, g.face, 0)
		w = max(w, lw)
	}
	const pad, row = 6.0, 17.0
	bw, bh := w+pad*2, row*float64(len(lines))+pad*2
	x := min(tip.X, float64(g.width)-bw)
	y := max(tip.Y-bh, 0)

	vector.DrawFilledRect(screen, float32(x), float32(y), float32(bw), float32(bh), panelColor, false)
	drawText(screen, tip.Label, g.face, x+pad, y+pad, textColor)
	drawText(screen, tip.Value, g.face, x+pad, y+pad+row, textColor)
	drawText(screen, tip.Status, g.face, x+pad, y+pad+row*2, hexColor(tip.StatusColor))
}

func (g *game) Layout(int, int) (int, int) {
	return g.width, g.height
}

func drawText(dst *ebiten.Image, s string, face *text.GoTextFace, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, face, op)
}

func hexColor(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return textColor
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
