package core

import (
	"math"

	"github.com/signalsfoundry/station-placer/model"
)

// Validation is the verdict on a single position.
type Validation struct {
	Valid     bool
	Reason    string
	Collision Collision
}

// ValidatePosition re-checks an arbitrary position, typically one read back
// from storage, against the system's bodies and the other stations. It does
// not modify anything. Pass the stations excluding the one being checked,
// otherwise it collides with itself.
func ValidatePosition(p Vec3, planets []model.Planet, others []model.Station, cfg Config) Validation {
	if !isFinite(p) {
		return Validation{Reason: "non-finite coordinate"}
	}
	c := CheckCollision(p, planets, others, cfg)
	if c.Collides() {
		return Validation{Reason: c.Reason(), Collision: c}
	}
	return Validation{Valid: true}
}

// ExcludeStation returns stations without the one whose ID is id. The input
// is not modified.
func ExcludeStation(stations []model.Station, id string) []model.Station {
	out := make([]model.Station, 0, len(stations))
	for _, s := range stations {
		if s.ID == id && id != "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func isFinite(v Vec3) bool {
	for _, f := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
