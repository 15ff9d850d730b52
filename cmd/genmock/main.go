// Command genmock generates sample batch fixtures from the synthetic
// generator, optionally publishing them to the sample topic. It uses the
// same domain serialization as the live pipeline so fixtures match what the
// ingestor consumes.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/samples.json
//	KAFKA_BROKERS=localhost:9092 go run ./cmd/genmock -publish -strip-coords
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/couchcryptid/geo-heat-overlay/internal/adapter/kafka"
	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/config"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/synthetic"
)

var defaultAt = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON fixture")
	publish := flag.Bool("publish", false, "publish batches to KAFKA_SAMPLE_TOPIC")
	seed := flag.Int64("seed", 42, "noise seed")
	at := flag.String("at", defaultAt.Format(time.RFC3339), "generation time (RFC3339)")
	strip := flag.Bool("strip-coords", false, "drop coordinates from every other sample so ingestion must forward geocode")
	flag.Parse()

	if *out == "" && !*publish {
		flag.Usage()
		return fmt.Errorf("nothing to do: set -out and/or -publish")
	}

	when, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		return fmt.Errorf("invalid -at: %w", err)
	}

	// A fixed clock keeps fixtures reproducible for a given -at and -seed.
	gen := synthetic.New(*seed, clockwork.NewFakeClockAt(when))

	batches := make([]domain.DataSource, 0, len(domain.AllMetrics()))
	for _, kind := range domain.AllMetrics() {
		ds := gen.Generate(kind)
		batches = append(batches, ds)
		log.Printf("%s: %d samples", kind, ds.Len())
	}

	events := make([]domain.OutputEvent, 0, len(batches))
	for _, ds := range batches {
		ev, err := domain.SerializeBatch(ds.Kind(), ds.Samples())
		if err != nil {
			return err
		}
		if *strip {
			if ev, err = stripCoordinates(ev); err != nil {
				return err
			}
		}
		events = append(events, ev)
	}

	if *out != "" {
		if err := writeFixture(*out, events); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote fixture: %s", *out)
	}

	if *publish {
		if err := publishEvents(events); err != nil {
			return err
		}
	}

	printStats(batches)
	return nil
}

func stripCoordinates(ev domain.OutputEvent) (domain.OutputEvent, error) {
	var batch domain.RawBatch
	if err := json.Unmarshal(ev.Value, &batch); err != nil {
		return ev, fmt.Errorf("decode batch: %w", err)
	}
	for i := range batch.Samples {
		if i%2 == 1 {
			batch.Samples[i].Lat = nil
			batch.Samples[i].Lon = nil
		}
	}
	value, err := json.Marshal(batch)
	if err != nil {
		return ev, fmt.Errorf("encode batch: %w", err)
	}
	ev.Value = value
	return ev, nil
}

func writeFixture(path string, events []domain.OutputEvent) error {
	values := make([]json.RawMessage, len(events))
	for i, ev := range events {
		values[i] = ev.Value
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func publishEvents(events []domain.OutputEvent) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	writer := kafkaadapter.NewWriter(cfg, slog.Default())
	defer writer.Close()

	if err := writer.LoadBatch(ctx, events); err != nil {
		return err
	}
	log.Printf("published %d batches to %s", len(events), cfg.KafkaSampleTopic)
	return nil
}

func printStats(batches []domain.DataSource) {
	fmt.Println()
	for _, ds := range batches {
		counts := make([]int, colorscale.BandCount)
		var hottest domain.Sample
		for _, s := range ds.Samples() {
			counts[colorscale.BandIndex(ds.Kind(), s.Intensity)]++
			if s.Intensity > hottest.Intensity {
				hottest = s
			}
		}
		fmt.Printf("%-12s %2d samples, hottest %s (%s)\n", ds.Kind(), ds.Len(), hottest.Label, hottest.DisplayValue)
		for _, entry := range colorscale.Legend(ds.Kind()) {
			if n := counts[entry.Band]; n > 0 {
				fmt.Printf("    %-22s %d\n", entry.Name, n)
			}
		}
	}
}
