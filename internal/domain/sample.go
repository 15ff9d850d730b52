package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMetric is returned when a metric name does not match any MetricKind.
var ErrUnknownMetric = errors.New("unknown metric kind")

// MetricKind selects the color ramp, animation effect and card title used for a
// sample set.
type MetricKind int

const (
	AQI MetricKind = iota
	Pollutant
	Fire
	Temperature
	Humidity
)

var metricNames = [...]string{
	AQI:         "aqi",
	Pollutant:   "pollutant",
	Fire:        "fire",
	Temperature: "temperature",
	Humidity:    "humidity",
}

var metricLabels = [...]string{
	AQI:         "Air Quality Index",
	Pollutant:   "Pollutant Level",
	Fire:        "Fire Activity",
	Temperature: "Temperature",
	Humidity:    "Humidity",
}

// AllMetrics returns every metric kind in display order.
func AllMetrics() []MetricKind {
	return []MetricKind{AQI, Pollutant, Fire, Temperature, Humidity}
}

// Valid reports whether k is one of the declared kinds.
func (k MetricKind) Valid() bool {
	return k >= AQI && k <= Humidity
}

func (k MetricKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("MetricKind(%d)", int(k))
	}
	return metricNames[k]
}

// Label is the human-readable title shown on marker cards and legends.
func (k MetricKind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return metricLabels[k]
}

// ParseMetricKind maps a metric name to its kind. Matching is case-insensitive
// and accepts the plural aliases "pollutants" and "fires".
func ParseMetricKind(s string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aqi":
		return AQI, nil
	case "pollutant", "pollutants":
		return Pollutant, nil
	case "fire", "fires":
		return Fire, nil
	case "temperature":
		return Temperature, nil
	case "humidity":
		return Humidity, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MetricKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(k))
	}
	return []byte(metricNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MetricKind) UnmarshalText(b []byte) error {
	parsed, err := ParseMetricKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Sample is one normalized, geo-tagged measurement.
type Sample struct {
	ID           string     `json:"id"`
	Latitude     float64    `json:"lat"`
	Longitude    float64    `json:"lon"`
	Intensity    float64    `json:"intensity"`
	Kind         MetricKind `json:"kind"`
	Label        string     `json:"label"`
	DisplayValue string     `json:"display_value"`
}

// Provenance records where a sample set came from.
type Provenance int

const (
	ProvenanceLive Provenance = iota + 1
	ProvenanceSynthetic
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceLive:
		return "live"
	case ProvenanceSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized values
// decode to the zero Provenance.
func (p *Provenance) UnmarshalText(b []byte) error {
	switch string(b) {
	case "live":
		*p = ProvenanceLive
	case "synthetic":
		*p = ProvenanceSynthetic
	default:
		*p = 0
	}
	return nil
}

// DataSource is a complete sample set for one metric kind tagged with its
// provenance. Construct it with Live or Synthetic; the zero value is an empty
// set of unknown provenance.
type DataSource struct {
	kind       MetricKind
	provenance Provenance
	samples    []Sample
	fetchedAt  time.Time
}

// Live wraps samples delivered by an ingestion adapter.
func Live(kind MetricKind, samples []Sample) DataSource {
	return newDataSource(kind, ProvenanceLive, samples)
}

// Synthetic wraps generated fallback samples.
func Synthetic(kind MetricKind, samples []Sample) DataSource {
	return newDataSource(kind, ProvenanceSynthetic, samples)
}

func newDataSource(kind MetricKind, p Provenance, samples []Sample) DataSource {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = NormalizeSample(s)
	}
	return DataSource{kind: kind, provenance: p, samples: out, fetchedAt: clock.Now().UTC()}
}

// Kind is the metric kind the set was fetched for.
func (d DataSource) Kind() MetricKind { return d.kind }

// Provenance reports whether the set is live or synthetic.
func (d DataSource) Provenance() Provenance { return d.provenance }

// Samples returns the normalized samples. The slice is shared and must not be
// modified.
func (d DataSource) Samples() []Sample { return d.samples }

// Len returns the number of samples.
func (d DataSource) Len() int { return len(d.samples) }

// FetchedAt is when the set was constructed.
func (d DataSource) FetchedAt() time.Time { return d.fetchedAt }

// RawSample is one sample as it appears on the wire. Lat and Lon are pointers
// so an omitted coordinate can be told apart from the equator or prime meridian.
type RawSample struct {
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Intensity    float64  `json:"intensity"`
	Label        string   `json:"label,omitempty"`
	DisplayValue string   `json:"display_value,omitempty"`
}

// HasCoordinates reports whether both coordinates were supplied.
func (r RawSample) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// RawBatch is the JSON payload of one ingestion message.
type RawBatch struct {
	Kind    string      `json:"kind"`
	Samples []RawSample `json:"samples"`
}

// RawEvent represents an unprocessed message from the sample topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sample topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
