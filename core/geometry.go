package core

import (
	"math"

	"github.com/signalsfoundry/station-placer/model"
)

// Vec3 is a point or direction in system units, star at the origin.
type Vec3 struct {
	X, Y, Z float64
}

// VecOf converts a stored position into a Vec3.
func VecOf(p model.Position) Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Position converts v back into a storable position.
func (v Vec3) Position() model.Position {
	return model.Position{X: v.X, Y: v.Y, Z: v.Z}
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean norm of the vector, i.e. its distance from the
// star.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Azimuth returns the angle of v in the ecliptic (X/Z) plane, in radians
// within [0, 2π). It is the inverse of the theta used by
// SphericalToCartesian.
func (v Vec3) Azimuth() float64 {
	return normalizeAngle(math.Atan2(v.Z, v.X))
}

// RadialDistance is the distance of (x, y, z) from the star.
func RadialDistance(x, y, z float64) float64 {
	return Vec3{X: x, Y: y, Z: z}.Norm()
}

// Distance3D is the Euclidean distance between p1 and p2.
func Distance3D(p1, p2 Vec3) float64 {
	return p1.DistanceTo(p2)
}

// SphericalToCartesian converts a radius, an azimuth theta (0..2π, measured in
// the ecliptic plane) and an elevation phi above that plane into Cartesian
// coordinates. Y is the out-of-plane axis.
func SphericalToCartesian(radius, theta, phi float64) Vec3 {
	return Vec3{
		X: radius * math.Cos(phi) * math.Cos(theta),
		Y: radius * math.Sin(phi),
		Z: radius * math.Cos(phi) * math.Sin(theta),
	}
}

// normalizeAngle folds a into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// angularSeparation returns the smallest angle between two azimuths, in
// [0, π].
func angularSeparation(a, b float64) float64 {
	d := math.Abs(normalizeAngle(a) - normalizeAngle(b))
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
