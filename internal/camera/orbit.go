package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Orbit defaults.
const (
	DefaultMinDistance   = 1.5
	DefaultMaxDistance   = 10.0
	DefaultDampingFactor = 0.05
)

// polar angle limit keeps the camera off the poles where the up vector flips.
const minPolar = 1e-6

// Orbit keeps a camera on a sphere around Target. Rotation and zoom input is
// accumulated and released gradually by Update when damping is enabled.
type Orbit struct {
	Target        mgl64.Vec3
	MinDistance   float64
	MaxDistance   float64
	DampingFactor float64 // 0 disables damping

	radius float64
	theta  float64 // azimuth around +Y, 0 on +Z
	phi    float64 // polar angle from +Y

	dTheta float64
	dPhi   float64
	zoom   float64
}

// NewOrbit starts an orbit at position around the origin.
func NewOrbit(position mgl64.Vec3) *Orbit {
	o := &Orbit{
		MinDistance:   DefaultMinDistance,
		MaxDistance:   DefaultMaxDistance,
		DampingFactor: DefaultDampingFactor,
		zoom:          1,
	}
	o.SetPosition(position)
	return o
}

// Rotate queues an azimuth and polar change in radians.
func (o *Orbit) Rotate(dTheta, dPhi float64) {
	o.dTheta += dTheta
	o.dPhi += dPhi
}

// Zoom queues a multiplicative distance change; factors below 1 move closer.
func (o *Orbit) Zoom(factor float64) {
	if factor > 0 {
		o.zoom *= factor
	}
}

// Update applies pending input and reports whether the camera moved.
func (o *Orbit) Update() bool {
	before := o.Position()

	if o.DampingFactor > 0 && o.DampingFactor < 1 {
		o.theta += o.dTheta * o.DampingFactor
		o.phi += o.dPhi * o.DampingFactor
		o.dTheta *= 1 - o.DampingFactor
		o.dPhi *= 1 - o.DampingFactor
		if math.Abs(o.dTheta) < 1e-6 {
			o.dTheta = 0
		}
		if math.Abs(o.dPhi) < 1e-6 {
			o.dPhi = 0
		}
	} else {
		o.theta += o.dTheta
		o.phi += o.dPhi
		o.dTheta, o.dPhi = 0, 0
	}
	o.phi = clamp(o.phi, minPolar, math.Pi-minPolar)
	o.radius = o.ClampDistance(o.radius * o.zoom)
	o.zoom = 1

	return o.Position().Sub(before).Len() > 1e-12
}

// Moving reports whether damped rotation is still pending.
func (o *Orbit) Moving() bool {
	return o.dTheta != 0 || o.dPhi != 0
}

// Position returns the camera position.
func (o *Orbit) Position() mgl64.Vec3 {
	sinPhi := math.Sin(o.phi)
	return o.Target.Add(mgl64.Vec3{
		o.radius * sinPhi * math.Sin(o.theta),
		o.radius * math.Cos(o.phi),
		o.radius * sinPhi * math.Cos(o.theta),
	})
}

// Distance is the current orbit radius.
func (o *Orbit) Distance() float64 { return o.radius }

// SetPosition moves the camera directly, clamping its distance and dropping
// any pending damped motion.
func (o *Orbit) SetPosition(p mgl64.Vec3) {
	off := p.Sub(o.Target)
	r := off.Len()
	if r < 1e-12 {
		off = mgl64.Vec3{0, 0, 1}
		r = 1
	}
	o.radius = o.ClampDistance(r)
	o.theta = math.Atan2(off[0], off[2])
	o.phi = clamp(math.Acos(clamp(off[1]/r, -1, 1)), minPolar, math.Pi-minPolar)
	o.dTheta, o.dPhi = 0, 0
	o.zoom = 1
}

// ClampDistance limits d to [MinDistance, MaxDistance].
func (o *Orbit) ClampDistance(d float64) float64 {
	return clamp(d, o.MinDistance, o.MaxDistance)
}

// Apply copies the orbit position into the camera and aims it at Target.
func (o *Orbit) Apply(c *Camera) {
	c.Position = o.Position()
	c.Target = o.Target
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
