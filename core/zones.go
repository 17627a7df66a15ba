package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/station-placer/model"
)

// OrbitalZone is the radial band around the star occupied by one planet and
// its moons. InnerEdge <= Center <= OuterEdge and InnerEdge >= 0.
type OrbitalZone struct {
	Name      string
	InnerEdge float64
	Center    float64
	OuterEdge float64
}

// Contains reports whether radius r falls inside the zone.
func (z OrbitalZone) Contains(r float64) bool {
	return r >= z.InnerEdge && r <= z.OuterEdge
}

// MaxMoonOrbit returns the largest moon orbit radius of p, or 0 when p has no
// moons. Moons without a recorded radius count as cfg.DefaultMoonOrbit.
func MaxMoonOrbit(p model.Planet, cfg Config) float64 {
	maxOrbit := 0.0
	for _, m := range p.Moons {
		maxOrbit = math.Max(maxOrbit, m.OrbitOr(cfg.DefaultMoonOrbit))
	}
	return maxOrbit
}

// ComputeZone derives the orbital zone of a single planet.
func ComputeZone(p model.Planet, cfg Config) OrbitalZone {
	center := VecOf(p.Position).Norm()
	reach := MaxMoonOrbit(p, cfg) + cfg.OrbitalBuffer
	return OrbitalZone{
		Name:      p.Name,
		InnerEdge: math.Max(0, center-reach),
		Center:    center,
		OuterEdge: center + reach,
	}
}

// ComputeZones returns the zones of all planets sorted by ascending center.
// Planets at equal radius keep their input order.
func ComputeZones(planets []model.Planet, cfg Config) []OrbitalZone {
	zones := make([]OrbitalZone, 0, len(planets))
	for _, p := range planets {
		zones = append(zones, ComputeZone(p, cfg))
	}
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Center < zones[j].Center
	})
	return zones
}
