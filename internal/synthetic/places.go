package synthetic

import "github.com/couchcryptid/geo-heat-overlay/internal/domain"

// Place is a catalogue entry: a named location and its typical intensity
// for one metric.
type Place struct {
	Name      string
	Latitude  float64
	Longitude float64
	Base      float64
}

var catalogue = map[domain.MetricKind][]Place{
	domain.AQI: {
		{"São Paulo, Brazil", -23.5505, -46.6333, 0.8},
		{"Rio de Janeiro, Brazil", -22.9068, -43.1729, 0.6},
		{"New York, USA", 40.7128, -74.0060, 0.4},
		{"Beijing, China", 39.9042, 116.4074, 1.0},
		{"New Delhi, India", 28.6139, 77.2090, 0.8},
		{"Belo Horizonte, Brazil", -19.9167, -43.9345, 0.5},
		{"Salvador, Brazil", -12.9714, -38.5014, 0.35},
	},
	domain.Pollutant: {
		{"São Paulo, Brazil", -23.5505, -46.6333, 0.7},
		{"Mexico City, Mexico", 19.4326, -99.1332, 0.9},
		{"Beijing, China", 39.9042, 116.4074, 0.8},
		{"Rio de Janeiro, Brazil", -22.9068, -43.1729, 0.55},
		{"Cairo, Egypt", 30.0444, 31.2357, 0.65},
	},
	domain.Fire: {
		{"Amazon, Brazil", -3.4653, -62.2159, 1.0},
		{"Central Africa", -2.1631, 15.8277, 0.8},
		{"Siberia, Russia", 61.5240, 105.3188, 1.0},
		{"New South Wales, Australia", -32.1656, 147.0170, 0.6},
		{"California, USA", 38.5816, -121.4944, 0.5},
	},
	domain.Temperature: {
		{"São Paulo, Brazil", -23.5505, -46.6333, 0.8},
		{"Mexico City, Mexico", 19.4326, -99.1332, 0.9},
		{"New York, USA", 40.7128, -74.0060, 0.3},
		{"Cairo, Egypt", 30.0444, 31.2357, 0.95},
		{"Reykjavík, Iceland", 64.1466, -21.9426, 0.1},
	},
	domain.Humidity: {
		{"Lagos, Nigeria", 6.5244, 3.3792, 0.8},
		{"Sydney, Australia", -33.8688, 151.2093, 0.6},
		{"Cairo, Egypt", 30.0444, 31.2357, 0.4},
		{"Manaus, Brazil", -3.1190, -60.0217, 0.9},
		{"Singapore", 1.3521, 103.8198, 0.85},
	},
}

// Places returns a copy of the catalogue for a metric. Unknown metrics have
// no places.
func Places(kind domain.MetricKind) []Place {
	src := catalogue[kind]
	out := make([]Place, len(src))
	copy(out, src)
	return out
}
