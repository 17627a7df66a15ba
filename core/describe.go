package core

import (
	"fmt"
	"math"
)

// OrbitDescription is a human-oriented summary of a position.
type OrbitDescription struct {
	Radius           float64
	AngleDegrees     float64 // azimuth in the ecliptic plane, [0, 360)
	ElevationDegrees float64
	Description      string
}

// DescribeOrbit summarises p without validating it.
func DescribeOrbit(p Vec3) OrbitDescription {
	r := p.Norm()
	angle := p.Azimuth() * 180 / math.Pi
	elev := 0.0
	if r > 0 {
		elev = math.Asin(math.Max(-1, math.Min(1, p.Y/r))) * 180 / math.Pi
	}
	return OrbitDescription{
		Radius:           r,
		AngleDegrees:     angle,
		ElevationDegrees: elev,
		Description:      fmt.Sprintf("orbit radius %.2f at %.1f° azimuth, %.1f° elevation", r, angle, elev),
	}
}
