// Command viewer opens a desktop window showing the heat-overlay globe with
// synthetic data. Hover a marker for its tooltip, click to fly to it, drag
// to orbit, scroll to zoom and press 1-5 to switch metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
	"github.com/couchcryptid/geo-heat-overlay/internal/synthetic"
)

func main() {
	width := flag.Int("width", 960, "window width")
	height := flag.Int("height", 540, "window height")
	kindName := flag.String("kind", "aqi", "initial metric kind")
	seed := flag.Int64("seed", 42, "planet and synthetic noise seed")
	refresh := flag.Duration("refresh", 30*time.Second, "synthetic data refresh interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	kind, err := domain.ParseMetricKind(*kindName)
	if err != nil {
		logger.Error("invalid metric", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetricsForTesting()
	app := globe.New(globe.Options{
		Width:   *width,
		Height:  *height,
		Seed:    *seed,
		Kind:    kind,
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics,
	})
	if err := app.Init(); err != nil {
		logger.Error("failed to init globe", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(nil, synthetic.New(*seed, clock), app, logger, metrics)
	task := pipeline.Schedule(ctx, clock, *refresh, p.Refresh)
	defer task.Stop()
	app.OnMetricChanged = func(domain.MetricKind) { task.Trigger() }

	game, err := newGame(ctx, app, clock, *width, *height)
	if err != nil {
		logger.Error("failed to create viewer", "error", err)
		os.Exit(1)
	}

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("Geo Heat Overlay")
	ebiten.SetTPS(30)
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, errQuit) {
		logger.Error("viewer error", "error", err)
		os.Exit(1)
	}
}
