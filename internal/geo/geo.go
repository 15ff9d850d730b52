// Package geo converts between geographic coordinates, equirectangular
// texture space and points on a Y-up sphere.
//
// Conventions: latitude is positive north, longitude positive east. The
// sphere's +Y axis points at the north pole and longitude -180 lies on +X,
// which lines the sphere up with an equirectangular texture whose left edge
// is the antimeridian.
package geo

import (
	"math"

	"github.com/golang/geo/r3"
)

// NormalizeLatitude clamps lat to [-90, 90]. NaN becomes 0.
func NormalizeLatitude(lat float64) float64 {
	if math.IsNaN(lat) {
		return 0
	}
	return math.Max(-90, math.Min(90, lat))
}

// NormalizeLongitude wraps lon into (-180, 180]. NaN and infinities become 0.
func NormalizeLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}
	l := math.Mod(lon+180, 360)
	if l <= 0 {
		l += 360
	}
	return l - 180
}

// ToTextureUV projects a coordinate onto an equirectangular canvas of the
// given pixel size. x lies in [0, width) with lon 180 wrapping to 0 and y lies
// in [0, height). Non-positive sizes yield (0, 0).
func ToTextureUV(lat, lon, width, height float64) (x, y float64) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	lat = NormalizeLatitude(lat)
	lon = NormalizeLongitude(lon)

	x = math.Mod((lon+180)/360*width, width)
	if x < 0 {
		x += width
	}
	if x >= width {
		x = 0
	}

	y = (90 - lat) / 180 * height
	if y >= height {
		y = math.Nextafter(height, 0)
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

// ToSphere places a coordinate on a sphere of the given radius centred at the
// origin.
func ToSphere(lat, lon, radius float64) r3.Vector {
	phi := degToRad(90 - NormalizeLatitude(lat))
	theta := degToRad(NormalizeLongitude(lon) + 180)
	sinPhi := math.Sin(phi)
	return r3.Vector{
		X: radius * sinPhi * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * sinPhi * math.Sin(theta),
	}
}

// FromSphere is the inverse of ToSphere for any non-zero vector; the radius is
// taken from the vector's length. The origin maps to (0, 0).
func FromSphere(v r3.Vector) (lat, lon float64) {
	r := v.Norm()
	if r < 1e-12 {
		return 0, 0
	}
	cosPhi := math.Max(-1, math.Min(1, v.Y/r))
	lat = 90 - radToDeg(math.Acos(cosPhi))
	if math.Abs(lat) >= 90-1e-9 {
		// Longitude is undefined at the poles.
		return lat, 0
	}
	lon = NormalizeLongitude(radToDeg(math.Atan2(v.Z, v.X)) - 180)
	return lat, lon
}

// SurfaceNormal returns the outward unit normal of the sphere at a coordinate.
func SurfaceNormal(lat, lon float64) r3.Vector {
	return ToSphere(lat, lon, 1)
}

// UV returns normalized texture coordinates in [0, 1) for a point on a sphere.
// u follows longitude from the antimeridian eastwards, v runs north to south.
func UV(v r3.Vector) (u, t float64) {
	lat, lon := FromSphere(v)
	x, y := ToTextureUV(lat, lon, 1, 1)
	return x, y
}

// RotateY applies a right-handed rotation of angle radians about +Y, so a
// quarter turn carries +Z onto +X.
func RotateY(v r3.Vector, angle float64) r3.Vector {
	s, c := math.Sincos(angle)
	return r3.Vector{
		X: c*v.X + s*v.Z,
		Y: v.Y,
		Z: -s*v.X + c*v.Z,
	}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func radToDeg(r float64) float64 { return r * 180 / math.Pi }
