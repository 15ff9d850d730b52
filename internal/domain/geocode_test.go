package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	forwardResult GeocodingResult
	forwardErr    error
	reverseResult GeocodingResult
	reverseErr    error
	forwardCalls  int
	reverseCalls  int
	lastQuery     string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (GeocodingResult, error) {
	m.forwardCalls++
	m.lastQuery = query
	return m.forwardResult, m.forwardErr
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.reverseCalls++
	return m.reverseResult, m.reverseErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func coord(v float64) *float64 { return &v }

// --- tests ---

func TestEnrichWithGeocoding_NilGeocoder(t *testing.T) {
	t.Run("label only is dropped", func(t *testing.T) {
		_, ok := EnrichWithGeocoding(context.Background(), AQI, RawSample{Label: "Lagos, Nigeria"}, nil, discardLogger())
		assert.False(t, ok)
	})

	t.Run("coordinates pass through", func(t *testing.T) {
		raw := RawSample{Lat: coord(6.52), Lon: coord(3.38), Intensity: 0.4}
		s, ok := EnrichWithGeocoding(context.Background(), AQI, raw, nil, discardLogger())
		require.True(t, ok)
		assert.Equal(t, 6.52, s.Latitude)
		assert.Equal(t, 3.38, s.Longitude)
		assert.Empty(t, s.Label)
	})
}

func TestEnrichWithGeocoding_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{
		forwardResult: GeocodingResult{
			Lat:              -23.5505,
			Lon:              -46.6333,
			FormattedAddress: "São Paulo, State of São Paulo, Brazil",
			PlaceName:        "São Paulo",
			Confidence:       0.95,
		},
	}

	raw := RawSample{Label: "São Paulo, Brazil", Intensity: 0.8, DisplayValue: "85 AQI"}
	s, ok := EnrichWithGeocoding(context.Background(), AQI, raw, geo, discardLogger())

	require.True(t, ok)
	assert.Equal(t, -23.5505, s.Latitude)
	assert.Equal(t, -46.6333, s.Longitude)
	assert.Equal(t, "São Paulo, Brazil", s.Label)
	assert.Equal(t, "85 AQI", s.DisplayValue)
	assert.Equal(t, "São Paulo, Brazil", geo.lastQuery)
	assert.Equal(t, 1, geo.forwardCalls)
	assert.Equal(t, 0, geo.reverseCalls)
}

func TestEnrichWithGeocoding_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		reverseResult: GeocodingResult{
			FormattedAddress: "Delhi, India",
			PlaceName:        "Delhi",
			Confidence:       0.98,
		},
	}

	raw := RawSample{Lat: coord(28.61), Lon: coord(77.21), Intensity: 0.9}
	s, ok := EnrichWithGeocoding(context.Background(), Pollutant, raw, geo, discardLogger())

	require.True(t, ok)
	assert.Equal(t, "Delhi", s.Label)
	assert.Equal(t, 28.61, s.Latitude)
	assert.Equal(t, 0, geo.forwardCalls)
	assert.Equal(t, 1, geo.reverseCalls)
}

func TestEnrichWithGeocoding_ForwardError_DropsSample(t *testing.T) {
	geo := &mockGeocoder{forwardErr: errors.New("API timeout")}

	_, ok := EnrichWithGeocoding(context.Background(), Fire, RawSample{Label: "Nowhere"}, geo, discardLogger())

	assert.False(t, ok)
	assert.Equal(t, 1, geo.forwardCalls)
}

func TestEnrichWithGeocoding_ForwardEmptyResult_DropsSample(t *testing.T) {
	geo := &mockGeocoder{}

	_, ok := EnrichWithGeocoding(context.Background(), Fire, RawSample{Label: "Atlantis"}, geo, discardLogger())

	assert.False(t, ok)
}

func TestEnrichWithGeocoding_ReverseError_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{reverseErr: errors.New("rate limited")}

	raw := RawSample{Lat: coord(30.2672), Lon: coord(-97.7431)}
	s, ok := EnrichWithGeocoding(context.Background(), Temperature, raw, geo, discardLogger())

	require.True(t, ok)
	assert.Equal(t, 30.2672, s.Latitude)
	assert.Empty(t, s.Label)
}

func TestEnrichWithGeocoding_NoLocationData(t *testing.T) {
	geo := &mockGeocoder{}

	_, ok := EnrichWithGeocoding(context.Background(), AQI, RawSample{Intensity: 0.5}, geo, discardLogger())

	assert.False(t, ok)
	assert.Equal(t, 0, geo.forwardCalls)
	assert.Equal(t, 0, geo.reverseCalls)
}

func TestEnrichWithGeocoding_CompleteSampleSkipsLookup(t *testing.T) {
	geo := &mockGeocoder{}

	raw := RawSample{Lat: coord(0), Lon: coord(0), Label: "Null Island"}
	s, ok := EnrichWithGeocoding(context.Background(), Humidity, raw, geo, discardLogger())

	require.True(t, ok)
	assert.Equal(t, "Null Island", s.Label)
	assert.Equal(t, 0, geo.forwardCalls)
	assert.Equal(t, 0, geo.reverseCalls)
}
