package globe

import (
	"context"
	"time"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
)

// Post queues fn to run on the loop goroutine. Safe from any goroutine; it
// blocks only when the queue is full.
func (a *App) Post(fn func(*App)) {
	a.posts <- fn
}

// Do runs fn on the loop goroutine and waits for it to finish or for ctx to
// end.
func (a *App) Do(ctx context.Context, fn func(*App)) error {
	done := make(chan struct{})
	wrapped := func(a *App) {
		defer close(done)
		fn(a)
	}
	select {
	case a.posts <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunPending runs queued work without blocking and returns how many items
// ran. Hosts that own their own loop, like the desktop viewer, call it once
// per frame.
func (a *App) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-a.posts:
			fn(a)
			n++
		default:
			return n
		}
	}
}

// Run initializes the scene and drives ticks from the clock until ctx is
// cancelled. Posted work runs between ticks, so ticks never overlap with it
// or with each other.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	if err := a.Init(); err != nil {
		return err
	}

	ticker := a.clock.NewTicker(a.opts.FrameInterval)
	defer ticker.Stop()
	a.logger.Info("render loop started", "frame_interval", a.opts.FrameInterval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("render loop stopping", "reason", ctx.Err())
			return nil
		case now := <-ticker.Chan():
			a.Tick(now)
		case fn := <-a.posts:
			fn(a)
		}
	}
}

// Tick advances the globe to now: idle rotation, orbit damping or selection
// pan, marker scale and orientation, animated texture refresh, and a frame
// for the attached surface.
func (a *App) Tick(now time.Time) {
	if a.scene == nil {
		return
	}
	start := a.clock.Now()
	defer func() { a.metrics.TickDuration.Observe(a.clock.Since(start).Seconds()) }()

	var dt float64
	if !a.lastTick.IsZero() {
		dt = max(0, now.Sub(a.lastTick).Seconds())
	}
	a.lastTick = now

	a.scene.Advance(dt)
	if !a.ctrl.Update(now) {
		a.scene.Orbit.Update()
	}
	a.scene.Orbit.Apply(a.scene.Camera)
	a.scene.UpdateMarkers()

	if a.loaded && !a.building && colorscale.EffectFor(a.kind).Kind.Animated() &&
		now.Sub(a.lastBuild) >= a.opts.AnimationInterval {
		a.requestTexture()
	}

	if a.surface == nil {
		return
	}
	w, h := a.scene.Size()
	if a.frame == nil || a.frame.Rect.Dx() != w || a.frame.Rect.Dy() != h {
		a.frame = a.scene.NewFrame()
	}
	a.scene.Render(a.frame)
	a.surface.Present(a.frame)
	a.metrics.FramesRendered.Inc()
}
