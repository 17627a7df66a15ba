package core

import (
	"fmt"

	"github.com/signalsfoundry/station-placer/model"
)

// CollisionKind identifies which separation rule a point violated.
type CollisionKind int

const (
	CollisionNone CollisionKind = iota
	CollisionStar
	CollisionPlanet
	CollisionMoon
	CollisionStation
)

func (k CollisionKind) String() string {
	switch k {
	case CollisionNone:
		return "none"
	case CollisionStar:
		return "star"
	case CollisionPlanet:
		return "planet"
	case CollisionMoon:
		return "moon"
	case CollisionStation:
		return "station"
	default:
		return fmt.Sprintf("CollisionKind(%d)", int(k))
	}
}

// Collision describes the first separation rule a candidate point broke.
// The zero value means no collision.
type Collision struct {
	Kind     CollisionKind
	Body     string  // name of the offending body; empty for the star
	Distance float64 // actual distance to the body
	Limit    float64 // minimum allowed distance
}

// Collides reports whether c records a violation.
func (c Collision) Collides() bool { return c.Kind != CollisionNone }

// Reason renders c for logs and validation reports.
func (c Collision) Reason() string {
	switch c.Kind {
	case CollisionNone:
		return ""
	case CollisionStar:
		return fmt.Sprintf("too close to star (%.2f < %.2f)", c.Distance, c.Limit)
	default:
		return fmt.Sprintf("too close to %s %s (%.2f < %.2f)", c.Kind, c.Body, c.Distance, c.Limit)
	}
}

// CheckCollision tests p against the star at the origin, every planet, every
// moon's exclusion sphere around its parent, and every existing station, in
// that order. It returns the first violation found. Distances exactly at a
// limit are allowed.
func CheckCollision(p Vec3, planets []model.Planet, stations []model.Station, cfg Config) Collision {
	if d := p.Norm(); d < cfg.StationToSun {
		return Collision{Kind: CollisionStar, Distance: d, Limit: cfg.StationToSun}
	}

	for _, pl := range planets {
		if d := p.DistanceTo(VecOf(pl.Position)); d < cfg.StationToPlanet {
			return Collision{Kind: CollisionPlanet, Body: pl.Name, Distance: d, Limit: cfg.StationToPlanet}
		}
	}

	for _, pl := range planets {
		if len(pl.Moons) == 0 {
			continue
		}
		d := p.DistanceTo(VecOf(pl.Position))
		for _, m := range pl.Moons {
			limit := cfg.StationToMoon + m.OrbitOr(cfg.DefaultMoonOrbit)
			if d < limit {
				return Collision{Kind: CollisionMoon, Body: moonLabel(pl, m), Distance: d, Limit: limit}
			}
		}
	}

	for _, st := range stations {
		if d := p.DistanceTo(VecOf(st.Position)); d < cfg.StationToStation {
			return Collision{Kind: CollisionStation, Body: stationLabel(st), Distance: d, Limit: cfg.StationToStation}
		}
	}

	return Collision{}
}

func moonLabel(p model.Planet, m model.Moon) string {
	if m.Name == "" {
		return p.Name + "/?"
	}
	return p.Name + "/" + m.Name
}

func stationLabel(s model.Station) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
