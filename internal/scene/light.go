package scene

import (
	"math"

	"github.com/golang/geo/r3"
)

// DirectionalLight shines from Direction toward the origin.
type DirectionalLight struct {
	Direction r3.Vector
	Intensity float64
}

// Lights is the scene lighting. Directions are in world space and do not
// follow the globe rotation.
type Lights struct {
	Ambient     float64
	Directional []DirectionalLight
}

// DefaultLights is a warm sun from the upper right with a weak fill from the
// opposite side.
func DefaultLights() Lights {
	return Lights{
		Ambient: float64(0x60) / 255 * 0.6,
		Directional: []DirectionalLight{
			{Direction: r3.Vector{X: 5, Y: 3, Z: 5}.Normalize(), Intensity: 1.2},
			{Direction: r3.Vector{X: -3, Y: -2, Z: -3}.Normalize(), Intensity: 0.4},
		},
	}
}

// Lambert returns the diffuse light factor for a unit surface normal.
func (l Lights) Lambert(normal r3.Vector) float64 {
	f := l.Ambient
	for _, d := range l.Directional {
		f += math.Max(0, normal.Dot(d.Direction)) * d.Intensity
	}
	return f
}
