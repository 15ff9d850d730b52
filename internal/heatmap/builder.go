// Package heatmap rasterizes geo samples into an equirectangular heat texture.
//
// Every sample becomes a radial-gradient stamp whose colors come from
// colorscale and whose radius grows with intensity. Stamps are composited
// source-over in input order, so later samples paint on top of earlier ones.
// Stamps that cross the left or right edge are painted a second time shifted
// by one texture width, so the seam at the antimeridian is invisible once the
// texture is wrapped around a sphere.
package heatmap

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/image/draw"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/geo"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
)

// ErrInvalidSize is returned when the requested texture has a non-positive
// dimension or exceeds MaxDimension.
var ErrInvalidSize = errors.New("invalid texture size")

// MaxDimension bounds either side of a texture.
const MaxDimension = 8192

// Gradient stop positions as fractions of the stamp radius.
const (
	midStop  = 0.3
	edgeStop = 0.7
	coreSize = 0.3
)

// Builder rasterizes heat textures. It holds no per-build state and is safe
// for concurrent use.
type Builder struct {
	metrics *observability.Metrics
	tracer  trace.Tracer
	clock   clockwork.Clock
}

// NewBuilder creates a Builder that records build durations in metrics.
func NewBuilder(metrics *observability.Metrics) *Builder {
	return &Builder{
		metrics: metrics,
		tracer:  observability.Tracer(),
		clock:   clockwork.NewRealClock(),
	}
}

// WithClock replaces the clock used to stamp BuiltAt.
func (b *Builder) WithClock(c clockwork.Clock) *Builder {
	b.clock = c
	return b
}

// Build paints samples of the given kind onto a transparent width x height
// canvas. at is the animation time handed to the kind's effect. An empty
// sample list yields a fully transparent texture.
func (b *Builder) Build(ctx context.Context, samples []domain.Sample, kind domain.MetricKind, width, height int, at time.Duration) (*Texture, error) {
	ctx, span := b.tracer.Start(ctx, "heatmap.Build", trace.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Int("samples", len(samples)),
		attribute.Int("width", width),
		attribute.Int("height", height),
	))
	defer span.End()

	tex, err := b.build(ctx, samples, kind, width, height, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return tex, nil
}

func (b *Builder) build(ctx context.Context, samples []domain.Sample, kind domain.MetricKind, width, height int, at time.Duration) (*Texture, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := b.clock.Now()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	effect := colorscale.EffectFor(kind)
	fw, fh := float64(width), float64(height)
	stamps := make([]colorscale.Stamp, 0, len(samples))

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, y := geo.ToTextureUV(s.Latitude, s.Longitude, fw, fh)
		stamp := effect.Apply(colorscale.StampInput{
			X:           x,
			Y:           y,
			Size:        colorscale.Radius(kind, s.Intensity, fw),
			Color:       colorscale.ColorFor(kind, s.Intensity),
			TimeSeconds: at.Seconds(),
			Seed:        seedFor(s.ID),
		})
		if stamp.Radius <= 0 {
			continue
		}
		paintStamp(dst, stamp)
		stamps = append(stamps, stamp)
	}

	b.metrics.TextureBuildDuration.WithLabelValues(kind.String()).Observe(b.clock.Since(start).Seconds())

	return &Texture{
		Image:   dst,
		Kind:    kind,
		WrapS:   Repeat,
		WrapT:   ClampToEdge,
		Stamps:  stamps,
		BuiltAt: b.clock.Now().UTC(),
	}, nil
}

// paintStamp composites one stamp, plus its wrapped copy when it crosses a
// vertical edge.
func paintStamp(dst *image.RGBA, s colorscale.Stamp) {
	glow, glowOrigin := rasterize(s, s.Radius, gradientColor(s.Color))
	core, coreOrigin := rasterize(s, s.Radius*coreSize, coreColor(s.Color.Center))

	w := dst.Rect.Dx()
	offsets := []int{0}
	if s.X-s.Radius < 0 {
		offsets = append(offsets, w)
	}
	if s.X+s.Radius >= float64(w) {
		offsets = append(offsets, -w)
	}

	for _, dx := range offsets {
		shift := image.Pt(dx, 0)
		draw.Draw(dst, glow.Bounds().Add(glowOrigin).Add(shift), glow, image.Point{}, draw.Over)
		draw.Draw(dst, core.Bounds().Add(coreOrigin).Add(shift), core, image.Point{}, draw.Over)
	}
}

// rasterize renders a radial falloff of the given radius centred on the
// stamp into a small sprite. The returned point is the sprite's top-left
// corner in canvas coordinates.
func rasterize(s colorscale.Stamp, radius float64, at func(t float64) color.NRGBA) (*image.NRGBA, image.Point) {
	x0 := int(math.Floor(s.X - radius))
	y0 := int(math.Floor(s.Y - radius))
	x1 := int(math.Ceil(s.X + radius))
	y1 := int(math.Ceil(s.Y + radius))
	sprite := image.NewNRGBA(image.Rect(0, 0, x1-x0+1, y1-y0+1))
	if radius <= 0 {
		return sprite, image.Pt(x0, y0)
	}

	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			d := math.Hypot(float64(px)+0.5-s.X, float64(py)+0.5-s.Y) / radius
			if d >= 1 {
				continue
			}
			sprite.SetNRGBA(px-x0, py-y0, at(d))
		}
	}
	return sprite, image.Pt(x0, y0)
}

// gradientColor interpolates center(0) -> mid(0.3) -> edge(0.7) -> transparent(1).
func gradientColor(stop colorscale.ColorStop) func(t float64) color.NRGBA {
	transparent := stop.Edge
	transparent.A = 0
	return func(t float64) color.NRGBA {
		switch {
		case t <= midStop:
			return lerpNRGBA(stop.Center, stop.Mid, t/midStop)
		case t <= edgeStop:
			return lerpNRGBA(stop.Mid, stop.Edge, (t-midStop)/(edgeStop-midStop))
		default:
			return lerpNRGBA(stop.Edge, transparent, (t-edgeStop)/(1-edgeStop))
		}
	}
}

// coreColor fades the center color from fully opaque to transparent at the rim.
func coreColor(c color.NRGBA) func(t float64) color.NRGBA {
	opaque := c
	opaque.A = 255
	transparent := c
	transparent.A = 0
	return func(t float64) color.NRGBA {
		return lerpNRGBA(opaque, transparent, t)
	}
}

func lerpNRGBA(a, b color.NRGBA, t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	l := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

func seedFor(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}
