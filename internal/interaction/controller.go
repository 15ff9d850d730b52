// Package interaction turns pointer input into hover tooltips, selections and
// the eased camera pan toward a selected sample.
package interaction

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geo-heat-overlay/internal/camera"
	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/scene"
)

// Tooltip placement and zoom behavior.
const (
	TooltipOffsetX = 15
	TooltipOffsetY = -15
	// ZoomInDistance is the camera distance after selecting a sample.
	ZoomInDistance = 2.5
)

// Picker resolves an NDC pointer position into hits sorted by distance.
type Picker interface {
	Pick(ndcX, ndcY float64) []scene.Hit
}

// Tooltip is the hover popup state. X and Y are viewport pixels.
type Tooltip struct {
	Visible     bool    `json:"visible"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Label       string  `json:"label,omitempty"`
	Value       string  `json:"value,omitempty"`
	Status      string  `json:"status,omitempty"`
	StatusColor string  `json:"status_color,omitempty"`
}

// Controller is driven from the owning loop and is not safe for concurrent
// use.
type Controller struct {
	picker Picker
	orbit  *camera.Orbit
	clock  clockwork.Clock

	width  int
	height int
	kind   domain.MetricKind

	tooltip  Tooltip
	hovering bool
	pan      *camera.Pan

	// OnHover fires with the hovered sample, or nil once when the pointer
	// leaves all samples.
	OnHover func(*domain.Sample)
	// OnSelect fires with a copy of the clicked sample.
	OnSelect func(domain.Sample)
}

// NewController wires pointer handling to a picker and the orbit it pans.
func NewController(picker Picker, orbit *camera.Orbit, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{picker: picker, orbit: orbit, clock: clock, kind: domain.AQI}
}

// SetViewport records the viewport size used to place the tooltip.
func (c *Controller) SetViewport(width, height int) {
	c.width, c.height = width, height
}

// SetKind sets the metric used for tooltip status text.
func (c *Controller) SetKind(kind domain.MetricKind) { c.kind = kind }

// Tooltip returns the current tooltip state.
func (c *Controller) Tooltip() Tooltip { return c.tooltip }

// PointerMove updates hover state for a pointer at the NDC position.
func (c *Controller) PointerMove(ndcX, ndcY float64) Tooltip {
	hit, ok := scene.FirstSample(c.picker.Pick(ndcX, ndcY))
	if !ok {
		c.ClearHover()
		return c.tooltip
	}

	s := hit.Sample
	status := colorscale.StatusFor(c.kind, s.Intensity)
	x, y := camera.ToScreen(ndcX, ndcY, c.width, c.height)
	c.tooltip = Tooltip{
		Visible:     true,
		X:           x + TooltipOffsetX,
		Y:           y + TooltipOffsetY,
		Label:       s.Label,
		Value:       s.DisplayValue,
		Status:      status.Text,
		StatusColor: colorscale.Hex(status.Color),
	}
	c.hovering = true
	if c.OnHover != nil {
		c.OnHover(s)
	}
	return c.tooltip
}

// ClearHover hides the tooltip and reports the end of a hover once.
func (c *Controller) ClearHover() {
	c.tooltip = Tooltip{}
	if !c.hovering {
		return
	}
	c.hovering = false
	if c.OnHover != nil {
		c.OnHover(nil)
	}
}

// PointerClick selects the sample under the pointer and starts a pan toward
// it. A new click replaces any pan in progress. It reports whether a sample
// was hit.
func (c *Controller) PointerClick(ndcX, ndcY float64) bool {
	hit, ok := scene.FirstSample(c.picker.Pick(ndcX, ndcY))
	if !ok {
		return false
	}

	dir := hit.Point.Normalize()
	dist := c.orbit.ClampDistance(ZoomInDistance)
	c.pan = &camera.Pan{
		From:     c.orbit.Position(),
		To:       mgl64.Vec3{dir.X, dir.Y, dir.Z}.Mul(dist).Add(c.orbit.Target),
		Start:    c.clock.Now(),
		Duration: camera.DefaultPanDuration,
	}
	if c.OnSelect != nil {
		c.OnSelect(*hit.Sample)
	}
	return true
}

// Panning reports whether a pan is in progress.
func (c *Controller) Panning() bool { return c.pan != nil }

// CancelPan stops a pan where it is, for example when the user starts
// dragging.
func (c *Controller) CancelPan() { c.pan = nil }

// Update advances a running pan and reports whether the camera moved.
func (c *Controller) Update(now time.Time) bool {
	if c.pan == nil {
		return false
	}
	c.orbit.SetPosition(c.pan.Position(now))
	if c.pan.Done(now) {
		c.pan = nil
	}
	return true
}
