package model

// Position is a point in system units relative to the system's star, which
// sits at the origin.
type Position struct {
	X float64
	Y float64
	Z float64
}

// Moon is a satellite of a planet. Moons carry no coordinates of their own;
// their footprint is a sphere of OrbitRadius around the parent planet.
type Moon struct {
	Name string

	// OrbitRadius is nil when the source data did not specify one. Consumers
	// substitute a configured default in that case.
	OrbitRadius *float64
}

// OrbitOr returns the moon's orbit radius, or def when it is unset.
func (m Moon) OrbitOr(def float64) float64 {
	if m.OrbitRadius == nil {
		return def
	}
	return *m.OrbitRadius
}

// Planet is a body orbiting the system's star.
type Planet struct {
	Name     string
	Position Position
	Moons    []Moon
}

// Station is an artificial body. Existing stations are obstacles for new
// placements; placed stations are the engine's output.
type Station struct {
	ID       string
	Name     string // optional until assigned
	Position Position
}
