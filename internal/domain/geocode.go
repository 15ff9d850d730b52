package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding turns a raw sample into a Sample, consulting the
// geocoder where the payload is incomplete:
//
//   - label but no coordinates: forward geocode; a failure or empty match
//     drops the sample (ok == false) since it cannot be placed on the globe.
//   - coordinates but no label: reverse geocode; a failure keeps the sample
//     with an empty label.
//   - both present: used as-is, no lookup.
//
// A nil geocoder disables lookups: label-only samples are dropped and
// unlabelled samples pass through unchanged.
func EnrichWithGeocoding(ctx context.Context, kind MetricKind, raw RawSample, geocoder Geocoder, logger *slog.Logger) (Sample, bool) {
	if !raw.HasCoordinates() {
		if geocoder == nil || raw.Label == "" {
			return Sample{}, false
		}
		result, err := geocoder.ForwardGeocode(ctx, raw.Label)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"kind", kind,
				"label", raw.Label,
				"error", err,
			)
			return Sample{}, false
		}
		if !result.Found() {
			logger.Debug("forward geocoding found no match", "kind", kind, "label", raw.Label)
			return Sample{}, false
		}
		return NewSample(kind, result.Lat, result.Lon, raw.Intensity, raw.Label, raw.DisplayValue), true
	}

	sample, _ := SampleFromRaw(kind, raw)
	if sample.Label != "" || geocoder == nil {
		return sample, true
	}

	result, err := geocoder.ReverseGeocode(ctx, sample.Latitude, sample.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"kind", kind,
			"lat", sample.Latitude,
			"lon", sample.Longitude,
			"error", err,
		)
		return sample, true
	}
	if !result.Found() {
		return sample, true
	}
	label := result.PlaceName
	if label == "" {
		label = result.FormattedAddress
	}
	return NewSample(kind, sample.Latitude, sample.Longitude, sample.Intensity, label, sample.DisplayValue), true
}
