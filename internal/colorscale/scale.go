// Package colorscale maps a metric kind and normalized intensity to the colors,
// status label and animation effect used to paint heat stamps and marker cards.
//
// Every kind has four bands separated by three thresholds. The band index is
// the number of thresholds the intensity strictly exceeds, so an intensity
// sitting exactly on a threshold stays in the lower band.
package colorscale

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// BandCount is the number of color bands per metric kind.
const BandCount = 4

// Alpha ranges for the three gradient stops. The low end applies at intensity
// 0 and the high end at intensity 1.
const (
	centerAlphaLow, centerAlphaHigh = 0.80, 0.95
	midAlphaLow, midAlphaHigh       = 0.40, 0.60
	edgeAlphaLow, edgeAlphaHigh     = 0.10, 0.30
)

// ColorStop holds the three gradient colors for one stamp plus the band it
// was drawn from.
type ColorStop struct {
	Center color.NRGBA
	Mid    color.NRGBA
	Edge   color.NRGBA
	Band   int
	Name   string
}

// Status is the qualitative label shown on cards and tooltips.
type Status struct {
	Text  string
	Color color.NRGBA
}

type band struct {
	name   string
	color  colorful.Color
	status Status
}

type scale struct {
	thresholds  [BandCount - 1]float64
	bands       [BandCount]band
	effect      EffectKind
	baseSize    float64
	maxSize     float64
	description string
}

var (
	green     = MustParseHex("#00ff88")
	amber     = MustParseHex("#ffaa00")
	orange    = MustParseHex("#ff6600")
	red       = MustParseHex("#ff4444")
	purple    = MustParseHex("#b04cff")
	blue      = MustParseHex("#0066ff")
	cyanGreen = MustParseHex("#00ccaa")
	lightBlue = MustParseHex("#66bbff")
	deepBlue  = MustParseHex("#0033cc")
	white     = colorful.Color{R: 1, G: 1, B: 1}
)

var (
	statusGreen      = nrgbaHex("#4CAF50")
	statusLightGreen = nrgbaHex("#8BC34A")
	statusOrange     = nrgbaHex("#FF9800")
	statusRed        = nrgbaHex("#F44336")
	statusPurple     = nrgbaHex("#9C27B0")
	statusBlue       = nrgbaHex("#2196F3")
	statusIndigo     = nrgbaHex("#3F51B5")
)

var scales = map[domain.MetricKind]scale{
	domain.AQI: {
		thresholds: [3]float64{0.3, 0.6, 0.8},
		bands: [4]band{
			{"green", green, Status{"Good", statusGreen}},
			{"amber", amber, Status{"Moderate", statusOrange}},
			{"orange", orange, Status{"Unhealthy", statusRed}},
			{"red", red, Status{"Hazardous", statusPurple}},
		},
		effect:      EffectGlow,
		baseSize:    40,
		maxSize:     120,
		description: "Air Quality Index: green is clean air, red is hazardous.",
	},
	domain.Pollutant: {
		thresholds: [3]float64{0.25, 0.5, 0.75},
		bands: [4]band{
			{"amber", amber, Status{"Low", statusLightGreen}},
			{"orange", orange, Status{"Moderate", statusOrange}},
			{"red", red, Status{"High", statusRed}},
			{"purple", purple, Status{"Very High", statusPurple}},
		},
		effect:      EffectPulse,
		baseSize:    30,
		maxSize:     100,
		description: "Particulate and gas concentration (PM2.5, NO2, O3, CO).",
	},
	domain.Fire: {
		thresholds: [3]float64{0.2, 0.5, 0.8},
		bands: [4]band{
			{"amber", amber, Status{"Low", statusLightGreen}},
			{"orange", orange, Status{"Moderate", statusOrange}},
			{"red", red, Status{"High", statusRed}},
			{"purple", purple, Status{"Extreme", statusPurple}},
		},
		effect:      EffectFlicker,
		baseSize:    24,
		maxSize:     80,
		description: "Active fire radiative power from satellite detections.",
	},
	domain.Temperature: {
		thresholds: [3]float64{0.25, 0.5, 0.75},
		bands: [4]band{
			{"blue", blue, Status{"Cold", statusBlue}},
			{"cyan-green", cyanGreen, Status{"Mild", statusGreen}},
			{"amber", amber, Status{"Warm", statusOrange}},
			{"red", red, Status{"Hot", statusRed}},
		},
		effect:      EffectGradient,
		baseSize:    50,
		maxSize:     130,
		description: "Surface air temperature: blue is cold, red is hot.",
	},
	domain.Humidity: {
		thresholds: [3]float64{0.3, 0.6, 0.8},
		bands: [4]band{
			{"orange", orange, Status{"Dry", statusOrange}},
			{"amber", amber, Status{"Comfortable", statusGreen}},
			{"light-blue", lightBlue, Status{"Humid", statusBlue}},
			{"deep-blue", deepBlue, Status{"Very Humid", statusIndigo}},
		},
		effect:      EffectWave,
		baseSize:    45,
		maxSize:     120,
		description: "Relative humidity: orange is dry, deep blue is saturated.",
	},
}

func lookup(kind domain.MetricKind) scale {
	if s, ok := scales[kind]; ok {
		return s
	}
	return scales[domain.AQI]
}

// BandIndex returns the band for an intensity: the number of thresholds it
// strictly exceeds. Unknown kinds use the AQI scale.
func BandIndex(kind domain.MetricKind, intensity float64) int {
	intensity = domain.NormalizeIntensity(intensity)
	s := lookup(kind)
	idx := 0
	for _, th := range s.thresholds {
		if intensity > th {
			idx++
		}
	}
	return idx
}

// ColorFor returns the gradient colors for a stamp. The center is the band
// color lifted toward white, the mid stop is the band color and the edge leans
// toward the previous band so neighbouring stamps blend smoothly. Alphas grow
// with intensity. It never fails: intensity is clamped first.
func ColorFor(kind domain.MetricKind, intensity float64) ColorStop {
	intensity = domain.NormalizeIntensity(intensity)
	s := lookup(kind)
	idx := BandIndex(kind, intensity)
	b := s.bands[idx]

	edge := b.color
	if idx > 0 {
		edge = b.color.BlendLab(s.bands[idx-1].color, 0.3)
	}

	return ColorStop{
		Center: toNRGBA(b.color.BlendLab(white, 0.15), lerp(centerAlphaLow, centerAlphaHigh, intensity)),
		Mid:    toNRGBA(b.color, lerp(midAlphaLow, midAlphaHigh, intensity)),
		Edge:   toNRGBA(edge, lerp(edgeAlphaLow, edgeAlphaHigh, intensity)),
		Band:   idx,
		Name:   b.name,
	}
}

// StatusFor returns the status label and color for an intensity.
func StatusFor(kind domain.MetricKind, intensity float64) Status {
	return lookup(kind).bands[BandIndex(kind, intensity)].status
}

// Sizes returns the stamp radius range in pixels at a 1024 px wide reference
// canvas.
func Sizes(kind domain.MetricKind) (base, max float64) {
	s := lookup(kind)
	return s.baseSize, s.maxSize
}

// ReferenceWidth is the canvas width Sizes is expressed at.
const ReferenceWidth = 1024

// Radius is the nominal stamp radius for an intensity on a canvas of the given
// width.
func Radius(kind domain.MetricKind, intensity, canvasWidth float64) float64 {
	base, max := Sizes(kind)
	r := base + domain.NormalizeIntensity(intensity)*(max-base)
	return r * canvasWidth / ReferenceWidth
}

// LegendEntry describes one band for a host legend.
type LegendEntry struct {
	Band   int         `json:"band"`
	Name   string      `json:"name"`
	Min    float64     `json:"min"`
	Max    float64     `json:"max"`
	Color  color.NRGBA `json:"-"`
	Hex    string      `json:"color"`
	Status string      `json:"status"`
}

// Legend lists the bands of a kind from lowest to highest. Min is exclusive
// except for the first band, Max is inclusive.
func Legend(kind domain.MetricKind) []LegendEntry {
	s := lookup(kind)
	out := make([]LegendEntry, BandCount)
	for i, b := range s.bands {
		lo, hi := 0.0, 1.0
		if i > 0 {
			lo = s.thresholds[i-1]
		}
		if i < len(s.thresholds) {
			hi = s.thresholds[i]
		}
		out[i] = LegendEntry{
			Band:   i,
			Name:   b.name,
			Min:    lo,
			Max:    hi,
			Color:  toNRGBA(b.color, 1),
			Hex:    b.color.Hex(),
			Status: b.status.Text,
		}
	}
	return out
}

// Description is a one-line explanation of the metric for legends.
func Description(kind domain.MetricKind) string {
	return lookup(kind).description
}

func toNRGBA(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(alpha * 255))}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// MustParseHex parses a #rrggbb color and panics on malformed input. It is
// meant for palette literals.
func MustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("colorscale: bad color %q: %v", s, err))
	}
	return c
}

func nrgbaHex(s string) color.NRGBA {
	return toNRGBA(MustParseHex(s), 1)
}

// Hex formats a color as #rrggbb, ignoring alpha.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
