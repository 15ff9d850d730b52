package globe

import (
	"fmt"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
)

// rebuild replaces the markers and requests a new heat texture for the
// current samples and metric.
func (a *App) rebuild() {
	samples := a.samples()
	a.scene.SetMarkers(samples, a.kind)
	a.metrics.MarkersActive.Set(float64(a.scene.Markers.Len()))
	// Old markers are gone, so any hover pointed at a stale sample.
	a.ctrl.ClearHover()
	a.requestTexture()
}

func (a *App) samples() []domain.Sample {
	if !a.loaded {
		return nil
	}
	return a.source.Samples()
}

// requestTexture starts an off-loop texture build. The result is posted
// back to the loop and applied only if no newer build was requested since.
func (a *App) requestTexture() {
	gen := a.generation.Add(1)
	samples := a.samples()
	kind, version := a.kind, a.version
	width, height := a.opts.TextureWidth, a.opts.TextureHeight
	at := a.clock.Since(a.started)
	ctx := a.ctx

	a.building = true
	a.lastBuild = a.clock.Now()

	a.spawn(func() {
		tex, err := a.builder.Build(ctx, samples, kind, width, height, at)
		finish := func(a *App) { a.finishTexture(gen, version, kind, tex, err) }
		select {
		case a.posts <- finish:
		case <-ctx.Done():
			a.logger.Debug("loop stopped, dropping texture build", "kind", kind, "generation", gen)
		}
	})
}

func (a *App) finishTexture(gen, version uint64, kind domain.MetricKind, tex *heatmap.Texture, err error) {
	if gen != a.generation.Load() {
		a.metrics.TextureRebuilds.WithLabelValues(kind.String(), "stale").Inc()
		a.logger.Debug("discarding stale texture", "kind", kind, "generation", gen)
		return
	}
	a.building = false

	if err != nil {
		a.metrics.TextureRebuilds.WithLabelValues(kind.String(), "error").Inc()
		a.reportError(fmt.Errorf("rebuild %s texture: %w", kind, err))
		return
	}

	tex.Version = version
	a.scene.SetOverlay(tex)
	a.metrics.TextureRebuilds.WithLabelValues(kind.String(), "success").Inc()
	a.logger.Debug("texture rebuilt", "kind", kind, "version", version, "stamps", len(tex.Stamps))
	if a.OnTextureRebuilt != nil {
		a.OnTextureRebuilt(tex.Info())
	}
}
