package core

import (
	"math"

	"github.com/signalsfoundry/station-placer/model"
)

// SlotStrategy places a station at the midpoint of a safe slot between
// planet zones. Its radius is deterministic; only the azimuth (when no fixed
// angle is given) and a small elevation jitter are random.
//
// A SlotStrategy is not safe for concurrent use unless its Rand is.
type SlotStrategy struct {
	cfg Config
	rng Rand
}

// NewSlotStrategy returns a slot strategy. A nil rng is replaced with a
// time-seeded generator.
func NewSlotStrategy(cfg Config, rng Rand) *SlotStrategy {
	return &SlotStrategy{cfg: cfg, rng: defaultRand(rng)}
}

// Name implements PlacementStrategy.
func (s *SlotStrategy) Name() string { return StrategySlot }

// Place implements PlacementStrategy.
func (s *SlotStrategy) Place(planets []model.Planet, stations []model.Station, opts PlacementOptions) PlacementResult {
	opts = opts.WithDefaults()

	slots := FindSafeSlots(planets, s.cfg)
	if len(slots) == 0 {
		return PlacementResult{
			Position:      Vec3{X: s.cfg.FallbackRadius},
			OrbitalRadius: s.cfg.FallbackRadius,
			Strategy:      StrategySlot,
			Fallback:      true,
		}
	}

	slot := chooseSlot(slots, opts.PreferredSlot)
	radius := slot.Mid()

	var theta float64
	if opts.FixedAngle != nil {
		theta = normalizeAngle(*opts.FixedAngle * math.Pi / 180)
	} else {
		theta = s.rng.Float64() * 2 * math.Pi
		theta = s.avoidNeighbors(theta, radius, stations)
	}
	phi := (s.rng.Float64()*2 - 1) * s.cfg.ElevationJitter

	return PlacementResult{
		Position:      SphericalToCartesian(radius, theta, phi),
		OrbitalRadius: radius,
		Strategy:      StrategySlot,
		Slot:          slot.Label,
	}
}

// avoidNeighbors moves theta to the far side of the star once for every
// station orbiting near radius whose azimuth is within
// MinAngularSeparation. It is a single pass: with three or more stations
// sharing a radius a later flip can land next to an earlier one.
func (s *SlotStrategy) avoidNeighbors(theta, radius float64, stations []model.Station) float64 {
	for _, st := range stations {
		v := VecOf(st.Position)
		if math.Abs(v.Norm()-radius) > s.cfg.NeighborRadiusWindow {
			continue
		}
		if angularSeparation(theta, v.Azimuth()) < s.cfg.MinAngularSeparation {
			theta = normalizeAngle(theta + math.Pi)
		}
	}
	return theta
}

// chooseSlot picks a slot by preference. Ties on width go to the innermost.
func chooseSlot(slots []SafeSlot, pref SlotPreference) SafeSlot {
	switch pref {
	case PreferInner:
		return slots[0]
	case PreferLargest:
		best := slots[0]
		for _, s := range slots[1:] {
			if s.Width() > best.Width() {
				best = s
			}
		}
		return best
	default:
		return slots[len(slots)-1]
	}
}
