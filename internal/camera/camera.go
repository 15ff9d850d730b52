// Package camera holds the perspective camera, the orbit controls that move it
// around the globe and the eased pan used when a marker is selected.
//
// Matrices follow OpenGL conventions (right-handed, NDC in [-1, 1] with +Y
// up), so a pointer at the top-left of the viewport is (-1, 1).
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Defaults for the globe camera.
const (
	DefaultFovY     = 75.0 // degrees
	DefaultNear     = 0.1
	DefaultFar      = 1000.0
	DefaultDistance = 3.0
)

// Camera is a perspective camera looking at Target.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FovY     float64 // vertical field of view, degrees
	Aspect   float64
	Near     float64
	Far      float64
}

// New returns a camera on the +Z axis at DefaultDistance looking at the origin.
func New(aspect float64) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{
		Position: mgl64.Vec3{0, 0, DefaultDistance},
		Up:       mgl64.Vec3{0, 1, 0},
		FovY:     DefaultFovY,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// SetViewport updates the aspect ratio for a viewport size in pixels.
// Degenerate sizes are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float64(width) / float64(height)
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	up := c.Up
	forward := c.Target.Sub(c.Position)
	if forward.Cross(up).Len() < 1e-9*forward.Len() {
		// Looking straight along the up axis; any perpendicular up works.
		up = mgl64.Vec3{0, 0, -1}
	}
	return mgl64.LookAtV(c.Position, c.Target, up)
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Distance is the camera's distance from its target.
func (c *Camera) Distance() float64 {
	return c.Position.Sub(c.Target).Len()
}

// Ray returns the world-space ray through a point in normalized device
// coordinates by unprojecting it at the near and far planes.
func (c *Camera) Ray(ndcX, ndcY float64) Ray {
	return c.Unprojector().Ray(ndcX, ndcY)
}

// Unprojector caches the inverse view-projection so many rays can be cast
// for one camera state.
type Unprojector struct {
	inv mgl64.Mat4
}

// Unprojector snapshots the current camera matrices.
func (c *Camera) Unprojector() Unprojector {
	return Unprojector{inv: c.ViewProjection().Inv()}
}

// Ray returns the world-space ray through an NDC point.
func (u Unprojector) Ray(ndcX, ndcY float64) Ray {
	near := u.inv.Mul4x1(mgl64.Vec4{ndcX, ndcY, -1, 1})
	far := u.inv.Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	return Ray{
		Origin: ToR3(n),
		Dir:    ToR3(f.Sub(n)).Normalize(),
	}
}

// Project maps a world point to normalized device coordinates. ok is false
// when the point is behind the camera.
func (c *Camera) Project(p r3.Vector) (ndcX, ndcY, depth float64, ok bool) {
	clip := c.ViewProjection().Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if clip.W() <= 1e-9 {
		return 0, 0, 0, false
	}
	return clip.X() / clip.W(), clip.Y() / clip.W(), clip.Z() / clip.W(), true
}

// ToScreen converts NDC to pixel coordinates with the origin at the top-left.
func ToScreen(ndcX, ndcY float64, width, height int) (x, y float64) {
	return (ndcX + 1) / 2 * float64(width), (1 - ndcY) / 2 * float64(height)
}

// ToNDC converts pixel coordinates with the origin at the top-left to NDC.
func ToNDC(x, y float64, width, height int) (ndcX, ndcY float64) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return 2*x/float64(width) - 1, 1 - 2*y/float64(height)
}

// ToR3 converts an mgl64 vector.
func ToR3(v mgl64.Vec3) r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

// ToVec3 converts an r3 vector.
func ToVec3(v r3.Vector) mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin r3.Vector
	Dir    r3.Vector
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectSphere returns the nearest non-negative hit distance against a
// sphere. A ray starting inside the sphere hits its far side.
func (r Ray) IntersectSphere(center r3.Vector, radius float64) (t float64, ok bool) {
	t0, t1, ok := r.SphereRoots(center, radius)
	if !ok {
		return 0, false
	}
	if t0 >= 0 {
		return t0, true
	}
	if t1 >= 0 {
		return t1, true
	}
	return 0, false
}

// SphereRoots returns both solutions of the ray/sphere quadratic, t0 <= t1.
func (r Ray) SphereRoots(center r3.Vector, radius float64) (t0, t1 float64, ok bool) {
	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)
	return (-b - sq) / (2 * a), (-b + sq) / (2 * a), true
}

// IntersectQuad intersects the ray with a parallelogram centred at center and
// spanned by the half-extent vectors halfU and halfV.
func (r Ray) IntersectQuad(center, halfU, halfV r3.Vector) (t float64, ok bool) {
	n := halfU.Cross(halfV)
	denom := n.Dot(r.Dir)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	t = n.Dot(center.Sub(r.Origin)) / denom
	if t < 0 {
		return 0, false
	}
	local := r.At(t).Sub(center)
	u := local.Dot(halfU) / halfU.Dot(halfU)
	v := local.Dot(halfV) / halfV.Dot(halfV)
	if math.Abs(u) > 1 || math.Abs(v) > 1 {
		return 0, false
	}
	return t, true
}
