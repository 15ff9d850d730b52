package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/geo-heat-overlay/internal/geo"
)

// KindHeader carries the metric kind on ingestion messages so consumers can
// route a batch without decoding it.
const KindHeader = "kind"

// ParseRawEvent deserializes a RawEvent's value into a RawBatch and resolves
// its metric kind. The JSON "kind" field wins over the message header.
func ParseRawEvent(raw RawEvent) (MetricKind, RawBatch, error) {
	var batch RawBatch
	if err := json.Unmarshal(raw.Value, &batch); err != nil {
		return 0, RawBatch{}, fmt.Errorf("parse raw batch: %w", err)
	}

	name := batch.Kind
	if strings.TrimSpace(name) == "" {
		name = raw.Headers[KindHeader]
	}
	kind, err := ParseMetricKind(name)
	if err != nil {
		return 0, RawBatch{}, fmt.Errorf("parse raw batch: %w", err)
	}
	return kind, batch, nil
}

// NewSample builds a normalized sample with a deterministic ID.
func NewSample(kind MetricKind, lat, lon, intensity float64, label, displayValue string) Sample {
	return NormalizeSample(Sample{
		Latitude:     lat,
		Longitude:    lon,
		Intensity:    intensity,
		Kind:         kind,
		Label:        strings.TrimSpace(label),
		DisplayValue: strings.TrimSpace(displayValue),
	})
}

// SampleFromRaw converts a raw sample that already has coordinates. ok is
// false when a coordinate is missing.
func SampleFromRaw(kind MetricKind, r RawSample) (s Sample, ok bool) {
	if !r.HasCoordinates() {
		return Sample{}, false
	}
	return NewSample(kind, *r.Lat, *r.Lon, r.Intensity, r.Label, r.DisplayValue), true
}

// NormalizeSample clamps latitude to [-90, 90], wraps longitude into
// (-180, 180] and clamps intensity to [0, 1] with NaN and infinities mapped to
// 0. A missing ID is filled in.
func NormalizeSample(s Sample) Sample {
	s.Latitude = geo.NormalizeLatitude(s.Latitude)
	s.Longitude = geo.NormalizeLongitude(s.Longitude)
	s.Intensity = NormalizeIntensity(s.Intensity)
	if s.ID == "" {
		s.ID = generateID(s.Kind, s.Label, s.Latitude, s.Longitude)
	}
	return s
}

// NormalizeIntensity maps NaN and infinities to 0 and clamps to [0, 1].
func NormalizeIntensity(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// generateID produces a deterministic ID from the sample's identity fields, so
// the same place reported in successive batches keeps the same marker ID.
func generateID(kind MetricKind, label string, lat, lon float64) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f", kind, label, lat, lon)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if !kind.Valid() {
		return short
	}
	return kind.String() + "-" + short
}

// SerializeBatch encodes samples as an ingestion message keyed by kind.
func SerializeBatch(kind MetricKind, samples []Sample) (OutputEvent, error) {
	batch := RawBatch{Kind: kind.String(), Samples: make([]RawSample, len(samples))}
	for i, s := range samples {
		lat, lon := s.Latitude, s.Longitude
		batch.Samples[i] = RawSample{
			Lat:          &lat,
			Lon:          &lon,
			Intensity:    s.Intensity,
			Label:        s.Label,
			DisplayValue: s.DisplayValue,
		}
	}
	value, err := json.Marshal(batch)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize batch: %w", err)
	}
	return OutputEvent{
		Key:     []byte(kind.String()),
		Value:   value,
		Headers: map[string]string{KindHeader: kind.String()},
	}, nil
}
