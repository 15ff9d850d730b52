// Command overlay runs the heat-overlay service: it keeps the globe loop
// rendering, refreshes the active metric from live Kafka data or the
// synthetic fallback, and serves the overlay, frames and events over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/geo-heat-overlay/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geo-heat-overlay/internal/adapter/kafka"
	"github.com/couchcryptid/geo-heat-overlay/internal/adapter/mapbox"
	"github.com/couchcryptid/geo-heat-overlay/internal/adapter/ws"
	"github.com/couchcryptid/geo-heat-overlay/internal/config"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
	"github.com/couchcryptid/geo-heat-overlay/internal/synthetic"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	app := globe.New(globe.Options{
		Width:         cfg.ViewportWidth,
		Height:        cfg.ViewportHeight,
		TextureWidth:  cfg.TextureWidth,
		TextureHeight: cfg.TextureHeight,
		Seed:          cfg.SyntheticSeed,
		Kind:          cfg.DefaultMetric,
		FrameInterval: cfg.FrameInterval(),
		Clock:         clock,
		Logger:        logger,
		Metrics:       metrics,
	})

	store := pipeline.NewLatestStore()
	var live pipeline.BatchSource
	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		live = store
		reader = kafkaadapter.NewReader(cfg, logger)
	} else {
		logger.Info("kafka ingestion disabled, serving synthetic data")
	}

	p := pipeline.New(live, synthetic.New(cfg.SyntheticSeed, clock), app, logger, metrics)
	refresh := pipeline.Schedule(ctx, clock, cfg.RefreshInterval, func(ctx context.Context) error {
		err := p.Refresh(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("refresh failed", "error", err)
		}
		return err
	})

	// A metric switch or fresh live data for the active metric refreshes
	// immediately instead of waiting for the next interval.
	app.OnMetricChanged = func(domain.MetricKind) { refresh.Trigger() }
	store.OnUpdate = func(kind domain.MetricKind) {
		if kind == app.ActiveMetric() {
			refresh.Trigger()
		}
	}

	hub := ws.NewHub(app, logger, metrics)
	hub.Bind(app)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, app, hub, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the globe loop.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := app.Run(ctx); err != nil {
			logger.Error("globe loop error", "error", err)
			stop()
		}
	}()

	// Start ingestion.
	ingestDone := make(chan struct{})
	if reader != nil {
		transformer := pipeline.NewTransformer(geocoder, logger, metrics)
		ingestor := pipeline.NewIngestor(reader, transformer, store, logger, metrics, cfg.BatchSize)
		go func() {
			defer close(ingestDone)
			if err := ingestor.Run(ctx); err != nil {
				logger.Error("ingestion error", "error", err)
			}
		}()
	} else {
		close(ingestDone)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	refresh.Stop()
	<-loopDone
	<-ingestDone
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	observability.ShutdownTracing(shutdownCtx, shutdownTracing, logger)

	logger.Info("shutdown complete")
}
