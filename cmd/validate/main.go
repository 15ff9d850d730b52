// Command validate performs integrity checks on a sample batch fixture such
// as the one genmock writes: every batch decodes, coordinates and
// intensities are in range, normalization is stable across a serialize and
// parse round trip, and every sample maps to a color band.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/samples.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/geo-heat-overlay/internal/colorscale"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// decoded is one fixture batch after parsing.
type decoded struct {
	index int
	kind  domain.MetricKind
	raw   domain.RawBatch
}

func main() {
	fixture := flag.String("fixture", "", "path to a JSON array of sample batches")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixture); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Sample Fixture Validation ===")
	fmt.Println()

	values, err := loadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	decodePhase, batches := validateDecoding(values)
	phases := []*phase{
		decodePhase,
		validateRanges(batches),
		validateRoundTrip(batches),
		validateColorBands(batches),
		validateIDs(batches),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Batches: %d, samples: %d\n", len(batches), countSamples(batches))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadFixture(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return values, nil
}

// ── Phase 1: every batch decodes to a known metric, once per metric ──

func validateDecoding(values []json.RawMessage) (*phase, []decoded) {
	p := &phase{name: "Phase 1: Batch decoding"}
	fmt.Println("Phase 1: Batch decoding...")

	seen := make(map[domain.MetricKind]int)
	batches := make([]decoded, 0, len(values))
	for i, v := range values {
		kind, raw, err := domain.ParseRawEvent(domain.RawEvent{Value: v})
		if err != nil {
			p.errorf("batch %d: %v", i, err)
			continue
		}
		if prev, ok := seen[kind]; ok {
			p.errorf("batch %d: duplicate %s batch (first at %d)", i, kind, prev)
		}
		seen[kind] = i
		batches = append(batches, decoded{index: i, kind: kind, raw: raw})
	}
	for _, kind := range domain.AllMetrics() {
		if _, ok := seen[kind]; !ok {
			p.errorf("no batch for %s", kind)
		}
	}
	return p, batches
}

// ── Phase 2: coordinates and intensities are within the wire contract ──

func validateRanges(batches []decoded) *phase {
	p := &phase{name: "Phase 2: Value ranges"}
	fmt.Println("Phase 2: Value ranges...")

	for _, b := range batches {
		for j, s := range b.raw.Samples {
			where := fmt.Sprintf("%s[%d]", b.kind, j)
			if !s.HasCoordinates() {
				if s.Label == "" {
					p.errorf("%s: no coordinates and no label to geocode", where)
				}
			} else {
				if *s.Lat < -90 || *s.Lat > 90 {
					p.errorf("%s: lat %g out of range", where, *s.Lat)
				}
				if *s.Lon <= -180 || *s.Lon > 180 {
					p.errorf("%s: lon %g out of range", where, *s.Lon)
				}
			}
			if math.IsNaN(s.Intensity) || s.Intensity < 0 || s.Intensity > 1 {
				p.errorf("%s: intensity %g outside [0, 1]", where, s.Intensity)
			}
			if s.DisplayValue == "" {
				p.errorf("%s: empty display_value", where)
			}
		}
	}
	return p
}

// ── Phase 3: serialize then parse yields the same normalized samples ──

func validateRoundTrip(batches []decoded) *phase {
	p := &phase{name: "Phase 3: Serialization round trip"}
	fmt.Println("Phase 3: Serialization round trip...")

	for _, b := range batches {
		samples := placed(b)
		out, err := domain.SerializeBatch(b.kind, samples)
		if err != nil {
			p.errorf("%s: serialize: %v", b.kind, err)
			continue
		}
		kind, raw, err := domain.ParseRawEvent(domain.RawEvent{Value: out.Value, Headers: out.Headers})
		if err != nil {
			p.errorf("%s: reparse: %v", b.kind, err)
			continue
		}
		if kind != b.kind {
			p.errorf("%s: kind changed to %s", b.kind, kind)
		}
		if len(raw.Samples) != len(samples) {
			p.errorf("%s: %d samples after round trip, want %d", b.kind, len(raw.Samples), len(samples))
			continue
		}
		for j, rs := range raw.Samples {
			got, _ := domain.SampleFromRaw(kind, rs)
			want := samples[j]
			if got.ID != want.ID || !floatEq(got.Latitude, want.Latitude) ||
				!floatEq(got.Longitude, want.Longitude) || !floatEq(got.Intensity, want.Intensity) {
				p.errorf("%s[%d]: %+v != %+v", b.kind, j, got, want)
			}
		}
	}
	return p
}

// ── Phase 4: every sample maps to a band with a status ──

func validateColorBands(batches []decoded) *phase {
	p := &phase{name: "Phase 4: Color band coverage"}
	fmt.Println("Phase 4: Color band coverage...")

	for _, b := range batches {
		used := make(map[int]bool)
		for _, s := range placed(b) {
			band := colorscale.BandIndex(b.kind, s.Intensity)
			if band < 0 || band >= colorscale.BandCount {
				p.errorf("%s %q: band %d out of range", b.kind, s.Label, band)
				continue
			}
			if colorscale.StatusFor(b.kind, s.Intensity).Text == "" {
				p.errorf("%s %q: empty status", b.kind, s.Label)
			}
			used[band] = true
		}
		if len(used) < 2 && len(b.raw.Samples) > 1 {
			p.errorf("%s: all samples fall in one band, the overlay will be flat", b.kind)
		}
	}
	return p
}

// ── Phase 5: sample IDs are unique within a metric and stable ──

func validateIDs(batches []decoded) *phase {
	p := &phase{name: "Phase 5: Sample IDs"}
	fmt.Println("Phase 5: Sample IDs...")

	for _, b := range batches {
		first := placed(b)
		second := placed(b)
		ids := make(map[string]string, len(first))
		for j, s := range first {
			if other, dup := ids[s.ID]; dup {
				p.errorf("%s: %q and %q share id %s", b.kind, other, s.Label, s.ID)
			}
			ids[s.ID] = s.Label
			if second[j].ID != s.ID {
				p.errorf("%s %q: id not deterministic", b.kind, s.Label)
			}
		}
	}
	return p
}

// ── Helpers ──

// placed returns the samples that carry coordinates. Label-only samples need
// a geocoder and are checked in phase 2 only.
func placed(b decoded) []domain.Sample {
	out := make([]domain.Sample, 0, len(b.raw.Samples))
	for _, rs := range b.raw.Samples {
		if s, ok := domain.SampleFromRaw(b.kind, rs); ok {
			out = append(out, s)
		}
	}
	return out
}

func countSamples(batches []decoded) int {
	n := 0
	for _, b := range batches {
		n += len(b.raw.Samples)
	}
	return n
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
