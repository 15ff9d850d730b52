// Package globe owns the heat-overlay globe: the scene, the marker layer, the
// interaction controller and the current sample set. All state is mutated on
// one loop goroutine; other goroutines hand work to it with Post or Do.
package globe

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
	"github.com/couchcryptid/geo-heat-overlay/internal/interaction"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
	"github.com/couchcryptid/geo-heat-overlay/internal/scene"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultFrameInterval     = time.Second / 30
	DefaultAnimationInterval = 100 * time.Millisecond
	DefaultTextureWidth      = 1024
	DefaultTextureHeight     = 512
	postQueueSize            = 256
)

// Surface receives every rendered frame. The frame is reused by the next
// tick, so implementations must copy what they keep.
type Surface interface {
	Present(frame *image.RGBA)
}

// Options configures an App.
type Options struct {
	Width         int
	Height        int
	TextureWidth  int
	TextureHeight int
	Seed          int64
	Kind          domain.MetricKind

	FrameInterval time.Duration
	// AnimationInterval is how often textures of animated metrics are
	// rebuilt with a new effect time.
	AnimationInterval time.Duration

	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// Spawn runs a texture build off the loop. Defaults to a new goroutine.
	Spawn func(func())
}

// App is the single owner of the globe state.
type App struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	builder *heatmap.Builder
	spawn   func(func())

	posts chan func(*App)
	ctx   context.Context

	scene *scene.Scene
	ctrl  *interaction.Controller

	kind       domain.MetricKind
	activeKind atomic.Int32
	source     domain.DataSource
	loaded     bool
	pending    *domain.DataSource
	version    uint64

	// generation increases with every texture rebuild request; results
	// carrying an older generation are discarded.
	generation atomic.Uint64
	building   bool
	lastBuild  time.Time

	surface  Surface
	frame    *image.RGBA
	started  time.Time
	lastTick time.Time

	// Output hooks, called on the loop goroutine.
	OnHover          func(*domain.Sample)
	OnSelect         func(domain.Sample)
	OnTextureRebuilt func(heatmap.Info)
	OnError          func(error)
	// OnMetricChanged fires after the active metric changes so a host can
	// fetch data for it.
	OnMetricChanged func(domain.MetricKind)
}

// New creates an App. The scene is not built until Init, so samples can be
// loaded before the globe exists.
func New(opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Spawn == nil {
		opts.Spawn = func(f func()) { go f() }
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.AnimationInterval <= 0 {
		opts.AnimationInterval = DefaultAnimationInterval
	}
	if opts.TextureWidth <= 0 {
		opts.TextureWidth = DefaultTextureWidth
	}
	if opts.TextureHeight <= 0 {
		opts.TextureHeight = DefaultTextureHeight
	}
	if !opts.Kind.Valid() {
		opts.Kind = domain.AQI
	}

	a := &App{
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
		builder: heatmap.NewBuilder(opts.Metrics).WithClock(opts.Clock),
		spawn:   opts.Spawn,
		posts:   make(chan func(*App), postQueueSize),
		ctx:     context.Background(),
		kind:    opts.Kind,
		started: opts.Clock.Now(),
	}
	a.activeKind.Store(int32(opts.Kind))
	return a
}

// Init builds the scene and applies any samples loaded before it existed.
// It must run on the loop goroutine; Run calls it when needed.
func (a *App) Init() error {
	if a.scene != nil {
		return nil
	}
	sc, err := scene.New(a.opts.Width, a.opts.Height, a.opts.Seed)
	if err != nil {
		return err
	}
	a.scene = sc

	a.ctrl = interaction.NewController(sc, sc.Orbit, a.clock)
	a.ctrl.SetViewport(a.opts.Width, a.opts.Height)
	a.ctrl.SetKind(a.kind)
	a.ctrl.OnHover = func(s *domain.Sample) {
		if a.OnHover != nil {
			a.OnHover(s)
		}
	}
	a.ctrl.OnSelect = func(s domain.Sample) {
		if a.OnSelect != nil {
			a.OnSelect(s)
		}
	}

	if a.pending != nil {
		ds := *a.pending
		a.pending = nil
		a.LoadSamples(ds)
	}
	if !a.loaded {
		a.rebuild()
	}
	a.logger.Info("globe initialized", "width", a.opts.Width, "height", a.opts.Height, "kind", a.kind)
	return nil
}

// Ready reports whether the scene exists.
func (a *App) Ready() bool { return a.scene != nil }

// Attach sets the surface frames are presented to. nil detaches.
func (a *App) Attach(s Surface) { a.surface = s }

// LoadSamples replaces the displayed sample set. Before Init the set is
// queued and applied when the scene is built. A set fetched for a metric
// other than the active one is dropped: a metric switch supersedes fetches
// still in flight.
func (a *App) LoadSamples(ds domain.DataSource) {
	if a.scene == nil {
		a.pending = &ds
		a.logger.Debug("samples queued until globe init", "kind", ds.Kind(), "samples", ds.Len())
		return
	}
	if ds.Kind().Valid() && ds.Kind() != a.kind {
		a.logger.Debug("dropping samples for inactive metric", "kind", ds.Kind(), "active", a.kind, "samples", ds.Len())
		return
	}
	a.source = ds
	a.loaded = true
	a.version++
	a.metrics.SamplesLoaded.Set(float64(ds.Len()))
	a.logger.Info("samples loaded",
		"kind", ds.Kind(),
		"provenance", ds.Provenance(),
		"samples", ds.Len(),
		"version", a.version,
	)
	a.rebuild()
}

// SetActiveMetric switches the metric used to color samples. Setting the
// current metric is a no-op. A displayed set fetched for another metric is
// cleared, so the globe stays empty until data for the new metric arrives.
func (a *App) SetActiveMetric(kind domain.MetricKind) {
	if !kind.Valid() || kind == a.kind {
		return
	}
	a.kind = kind
	a.activeKind.Store(int32(kind))
	if a.loaded && a.source.Kind().Valid() && a.source.Kind() != kind {
		a.source = domain.DataSource{}
		a.loaded = false
		a.metrics.SamplesLoaded.Set(0)
	}
	if a.ctrl != nil {
		a.ctrl.SetKind(kind)
	}
	a.logger.Info("active metric changed", "kind", kind)
	if a.scene != nil {
		a.rebuild()
	}
	if a.OnMetricChanged != nil {
		a.OnMetricChanged(kind)
	}
}

// ActiveMetric returns the active metric. Safe from any goroutine.
func (a *App) ActiveMetric() domain.MetricKind {
	return domain.MetricKind(a.activeKind.Load())
}

// Submit hands a freshly fetched sample set to the loop. Safe from any
// goroutine.
func (a *App) Submit(ds domain.DataSource) {
	a.Post(func(a *App) { a.LoadSamples(ds) })
}

// PointerMove updates hover state for a pointer at NDC coordinates.
func (a *App) PointerMove(ndcX, ndcY float64) interaction.Tooltip {
	if a.ctrl == nil {
		return interaction.Tooltip{}
	}
	return a.ctrl.PointerMove(ndcX, ndcY)
}

// PointerClick selects the sample under the pointer, if any.
func (a *App) PointerClick(ndcX, ndcY float64) bool {
	if a.ctrl == nil {
		return false
	}
	return a.ctrl.PointerClick(ndcX, ndcY)
}

// PointerLeave hides the tooltip when the pointer leaves the viewport.
func (a *App) PointerLeave() {
	if a.ctrl == nil {
		return
	}
	a.ctrl.ClearHover()
}

// Drag orbits the camera by angles in radians and cancels any pan.
func (a *App) Drag(dTheta, dPhi float64) {
	if a.scene == nil {
		return
	}
	a.ctrl.CancelPan()
	a.scene.Orbit.Rotate(dTheta, dPhi)
}

// Zoom scales the camera distance; factors below 1 move closer.
func (a *App) Zoom(factor float64) {
	if a.scene == nil {
		return
	}
	a.ctrl.CancelPan()
	a.scene.Orbit.Zoom(factor)
}

// Resize changes the viewport size. Degenerate sizes are ignored.
func (a *App) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.opts.Width, a.opts.Height = width, height
	a.frame = nil
	if a.scene != nil {
		a.scene.Resize(width, height)
		a.ctrl.SetViewport(width, height)
	}
}

// Tooltip returns the current hover tooltip.
func (a *App) Tooltip() interaction.Tooltip {
	if a.ctrl == nil {
		return interaction.Tooltip{}
	}
	return a.ctrl.Tooltip()
}

// Scene exposes the scene for hosts that draw it themselves. nil before Init.
func (a *App) Scene() *scene.Scene { return a.scene }

// Texture returns the current heat texture, possibly nil.
func (a *App) Texture() *heatmap.Texture {
	if a.scene == nil {
		return nil
	}
	return a.scene.Overlay()
}

// Source returns the displayed sample set and whether one has been loaded.
func (a *App) Source() (domain.DataSource, bool) { return a.source, a.loaded }

// Version counts LoadSamples calls applied to the scene.
func (a *App) Version() uint64 { return a.version }

// RenderFrame draws a fresh frame into a new image, independent of any
// attached surface.
func (a *App) RenderFrame() *image.RGBA {
	if a.scene == nil {
		return image.NewRGBA(image.Rect(0, 0, a.opts.Width, a.opts.Height))
	}
	frame := a.scene.NewFrame()
	a.scene.Render(frame)
	return frame
}

// MarkerInfo describes one marker for host surfaces.
type MarkerInfo struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`
	Intensity    float64 `json:"intensity"`
	DisplayValue string  `json:"display_value"`
	Status       string  `json:"status"`
	StatusColor  string  `json:"status_color"`
}

// State is a snapshot of what the globe shows.
type State struct {
	Kind        domain.MetricKind        `json:"kind"`
	Description string                   `json:"description"`
	Provenance  domain.Provenance        `json:"provenance"`
	Version     uint64                   `json:"version"`
	FetchedAt   time.Time                `json:"fetched_at"`
	Texture     *heatmap.Info            `json:"texture,omitempty"`
	Markers     []MarkerInfo             `json:"markers"`
	Legend      []colorscale.LegendEntry `json:"legend"`
}

// Snapshot returns the current state.
func (a *App) Snapshot() State {
	st := State{
		Kind:        a.kind,
		Description: colorscale.Description(a.kind),
		Version:     a.version,
		Markers:     []MarkerInfo{},
		Legend:      colorscale.Legend(a.kind),
	}
	if a.loaded {
		st.Provenance = a.source.Provenance()
		st.FetchedAt = a.source.FetchedAt()
		for _, s := range a.source.Samples() {
			status := colorscale.StatusFor(a.kind, s.Intensity)
			st.Markers = append(st.Markers, MarkerInfo{
				ID:           s.ID,
				Label:        s.Label,
				Latitude:     s.Latitude,
				Longitude:    s.Longitude,
				Intensity:    s.Intensity,
				DisplayValue: s.DisplayValue,
				Status:       status.Text,
				StatusColor:  colorscale.Hex(status.Color),
			})
		}
	}
	if tex := a.Texture(); tex != nil {
		info := tex.Info()
		st.Texture = &info
	}
	return st
}

func (a *App) reportError(err error) {
	a.logger.Error("globe error", "error", err)
	if a.OnError != nil {
		a.OnError(err)
	}
}
