// Package domain models geo-tagged environmental samples rendered by the
// heat-overlay globe.
//
// # Samples
//
// A [Sample] is one measurement at a point on the globe: a latitude/longitude
// pair, a normalized intensity in [0, 1], the [MetricKind] it belongs to, a
// human-readable place label and a pre-formatted display value such as
// "85 AQI" or "28°C". Samples are immutable once constructed.
//
// Coordinate conventions:
//
//	Latitude  [-90, 90], positive = north. Out-of-range values are clamped.
//	Longitude (-180, 180], positive = east. Values are wrapped, so -180 becomes 180
//	and 190 becomes -170.
//
// Intensity is unit-free severity. NaN and infinities become 0 and everything
// else is clamped to [0, 1]. Malformed samples are normalized, never rejected,
// so the overlay stays renderable whatever the collaborator delivers.
//
// # Metric kinds
//
//	aqi          Air Quality Index, unitless severity score
//	pollutant    particulate / gas concentration (PM2.5, NO2, O3, CO)
//	fire         active fire radiative power
//	temperature  surface air temperature
//	humidity     relative humidity
//
// Some feeds use the plural forms "pollutants" and "fires";
// [ParseMetricKind] accepts both.
//
// # Data sources
//
// A [DataSource] is a full sample set for one metric kind, tagged with where it
// came from: [Live] for data delivered by an ingestion adapter (Kafka) and
// [Synthetic] for generated fallback data. Sample sets are replaced wholesale;
// nothing downstream mutates a set in place.
//
// # Wire format
//
// Ingestion adapters deliver batches as flat JSON:
//
//	{"kind":"aqi","samples":[{"lat":-23.55,"lon":-46.63,"intensity":0.8,
//	  "label":"São Paulo","display_value":"85 AQI"}]}
//
// lat/lon may be omitted when a label is present; such samples are forward
// geocoded. A sample with coordinates but no label is reverse geocoded. See
// [EnrichWithGeocoding].
//
// # ID Generation
//
// Sample IDs are deterministic SHA-256 hashes of kind|label|lat|lon so that a
// marker keeps its identity across refreshes of the same place. See [generateID].
package domain
