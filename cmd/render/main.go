// Command render writes the heat overlay, the base planet and a rendered
// globe frame for one metric to PNG files, using synthetic data or a sample
// fixture. Useful for eyeballing color scales without running the service.
//
// Usage:
//
//	go run ./cmd/render -kind fire -out out/
//	go run ./cmd/render -kind aqi -fixture data/mock/samples.json -rotate 1.2
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	kindName := flag.String("kind", "aqi", "metric kind to render")
	fixture := flag.String("fixture", "", "optional JSON fixture written by genmock; synthetic data when empty")
	out := flag.String("out", ".", "output directory")
	width := flag.Int("width", 960, "frame width")
	height := flag.Int("height", 540, "frame height")
	texWidth := flag.Int("texture-width", globe.DefaultTextureWidth, "overlay texture width")
	texHeight := flag.Int("texture-height", globe.DefaultTextureHeight, "overlay texture height")
	seed := flag.Int64("seed", 42, "planet and synthetic noise seed")
	rotate := flag.Float64("rotate", 0, "globe rotation in radians")
	at := flag.Duration("at", 0, "effect time for animated metrics")
	flag.Parse()

	kind, err := domain.ParseMetricKind(*kindName)
	if err != nil {
		return err
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
	ds, err := loadSamples(*fixture, kind, *seed, clock)
	if err != nil {
		return err
	}

	app := globe.New(globe.Options{
		Width:         *width,
		Height:        *height,
		TextureWidth:  *texWidth,
		TextureHeight: *texHeight,
		Seed:          *seed,
		Kind:          kind,
		Clock:         clock,
		Spawn:         func(f func()) { f() },
	})
	if err := app.Init(); err != nil {
		return err
	}
	clock.Advance(*at)
	app.LoadSamples(ds)
	app.RunPending()
	app.Scene().Rotation = *rotate
	app.Tick(clock.Now())

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	tex := app.Texture()
	if tex == nil {
		return fmt.Errorf("no %s texture was built", kind)
	}
	files := []struct {
		name string
		img  image.Image
	}{
		{fmt.Sprintf("%s-overlay.png", kind), tex.Image},
		{"planet.png", app.Scene().Planet().Image},
		{fmt.Sprintf("%s-frame.png", kind), app.RenderFrame()},
	}
	for _, f := range files {
		path := filepath.Join(*out, f.name)
		if err := writePNG(path, f.img); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("wrote %s", path)
	}
	log.Printf("%s: %d samples (%s), %d stamps", kind, ds.Len(), ds.Provenance(), len(tex.Stamps))
	return nil
}

func loadSamples(path string, kind domain.MetricKind, seed int64, clock clockwork.Clock) (domain.DataSource, error) {
	if path == "" {
		return synthetic.New(seed, clock).Generate(kind), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DataSource{}, err
	}
	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return domain.DataSource{}, fmt.Errorf("decode fixture: %w", err)
	}
	for _, v := range values {
		k, batch, err := domain.ParseRawEvent(domain.RawEvent{Value: v})
		if err != nil || k != kind {
			continue
		}
		samples := make([]domain.Sample, 0, len(batch.Samples))
		for _, rs := range batch.Samples {
			if s, ok := domain.SampleFromRaw(kind, rs); ok {
				samples = append(samples, s)
			}
		}
		return domain.Live(kind, samples), nil
	}
	return domain.DataSource{}, fmt.Errorf("fixture has no %s batch", kind)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
