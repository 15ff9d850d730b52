package colorscale

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// EffectKind names the animation applied to a kind's stamps.
type EffectKind int

const (
	EffectGlow EffectKind = iota
	EffectPulse
	EffectFlicker
	EffectGradient
	EffectWave
)

func (e EffectKind) String() string {
	switch e {
	case EffectGlow:
		return "glow"
	case EffectPulse:
		return "pulse"
	case EffectFlicker:
		return "flicker"
	case EffectGradient:
		return "gradient"
	case EffectWave:
		return "wave"
	default:
		return "unknown"
	}
}

// Animated reports whether the effect's output depends on time.
func (e EffectKind) Animated() bool {
	return e == EffectPulse || e == EffectFlicker || e == EffectWave
}

// Effect tuning. Amplitudes are fractions of the nominal radius.
const (
	pulsePeriod    = 1.6 // seconds
	pulseAmplitude = 0.15
	flickerRate    = 12 // buckets per second
	flickerRadius  = 0.12
	flickerJitter  = 0.05
	wavePeriod     = 3.0 // seconds
	waveLength     = 256 // pixels at the reference width
	waveAmplitude  = 0.12
)

// StampInput is what the heat builder knows about a stamp before animation.
type StampInput struct {
	X, Y        float64 // canvas pixels
	Size        float64 // nominal radius in pixels
	Color       ColorStop
	TimeSeconds float64
	Seed        uint64
}

// Stamp is the final geometry and color of one heat blob.
type Stamp struct {
	X, Y   float64
	Radius float64
	Color  ColorStop
}

// Effect transforms a stamp deterministically for a point in time.
type Effect struct {
	Kind EffectKind
}

// EffectFor returns the effect used by a metric kind.
func EffectFor(kind domain.MetricKind) Effect {
	return Effect{Kind: lookup(kind).effect}
}

// Apply returns the stamp for in.TimeSeconds. The same input always yields the
// same stamp, and the stamp never reaches outside the nominal circle of
// radius in.Size around (in.X, in.Y).
func (e Effect) Apply(in StampInput) Stamp {
	out := Stamp{X: in.X, Y: in.Y, Radius: in.Size, Color: in.Color}
	if in.Size <= 0 {
		out.Radius = 0
		return out
	}

	switch e.Kind {
	case EffectPulse:
		phase := 0.5 + 0.5*math.Sin(2*math.Pi*in.TimeSeconds/pulsePeriod)
		out.Radius = in.Size * (1 - pulseAmplitude*phase)

	case EffectFlicker:
		bucket := uint64(math.Floor(math.Max(0, in.TimeSeconds) * flickerRate))
		h := hash2(in.Seed, bucket)
		r1 := unit(h)
		r2 := unit(h >> 21)
		r3 := unit(h >> 42)
		// Offset plus radius stays inside the nominal footprint.
		out.Radius = in.Size * (1 - flickerJitter - flickerRadius*r1)
		out.X += (r2*2 - 1) * flickerJitter / math.Sqrt2 * in.Size
		out.Y += (r3*2 - 1) * flickerJitter / math.Sqrt2 * in.Size

	case EffectWave:
		phase := 2 * math.Pi * (in.X/waveLength - in.TimeSeconds/wavePeriod)
		out.Radius = in.Size * (1 - waveAmplitude*(0.5+0.5*math.Sin(phase)))

	case EffectGlow, EffectGradient:
		// static
	}
	return out
}

// hash2 mixes a seed and a frame bucket into 64 well-distributed bits.
func hash2(seed, bucket uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], bucket)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// unit maps the low 21 bits of h to [0, 1].
func unit(h uint64) float64 {
	return float64(h&(1<<21-1)) / float64(1<<21-1)
}
