package core

import (
	"math"

	"github.com/signalsfoundry/station-placer/model"
)

// SamplingStrategy places a station by rejection sampling: it draws random
// spherical coordinates inside an orbit band and keeps the first point that
// passes CheckCollision. When the attempt budget runs out it returns an
// unchecked fallback point on the +X axis.
//
// There is no separate angular nudge away from existing stations. Spacing from
// them comes from the StationToStation rule in CheckCollision, which rejects
// any sample too close to a station and forces a redraw.
//
// A SamplingStrategy is not safe for concurrent use unless its Rand is.
type SamplingStrategy struct {
	cfg Config
	rng Rand
}

// NewSamplingStrategy returns a sampling strategy. A nil rng is replaced with
// a time-seeded generator.
func NewSamplingStrategy(cfg Config, rng Rand) *SamplingStrategy {
	return &SamplingStrategy{cfg: cfg, rng: defaultRand(rng)}
}

// Name implements PlacementStrategy.
func (s *SamplingStrategy) Name() string { return StrategySampling }

// OrbitBand returns the radius band sampled for the given planets.
func (s *SamplingStrategy) OrbitBand(planets []model.Planet, opts PlacementOptions) (minOrbit, maxOrbit float64) {
	opts = opts.WithDefaults()
	if len(planets) == 0 {
		return opts.DefaultMinOrbit, opts.DefaultMaxOrbit
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range planets {
		r := VecOf(p.Position).Norm()
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	minOrbit = math.Max(lo*opts.MinOrbitMultiplier, s.cfg.StationToSun+s.cfg.MinOrbitFloorOffset)
	maxOrbit = math.Max(hi*opts.MaxOrbitMultiplier, minOrbit)
	return minOrbit, maxOrbit
}

// Place implements PlacementStrategy.
func (s *SamplingStrategy) Place(planets []model.Planet, stations []model.Station, opts PlacementOptions) PlacementResult {
	opts = opts.WithDefaults()
	minOrbit, maxOrbit := s.OrbitBand(planets, opts)
	halfPhi := math.Pi * *opts.PhiRange / 2

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		radius := minOrbit + s.rng.Float64()*(maxOrbit-minOrbit)
		theta := s.rng.Float64() * 2 * math.Pi
		phi := (s.rng.Float64()*2 - 1) * halfPhi

		p := SphericalToCartesian(radius, theta, phi)
		if CheckCollision(p, planets, stations, s.cfg).Collides() {
			continue
		}
		return PlacementResult{
			Position:      p,
			OrbitalRadius: radius,
			Strategy:      StrategySampling,
			Attempts:      attempt,
		}
	}

	fallback := minOrbit + s.cfg.StochasticFallbackOffset
	return PlacementResult{
		Position:      Vec3{X: fallback},
		OrbitalRadius: fallback,
		Strategy:      StrategySampling,
		Attempts:      opts.MaxAttempts,
		Fallback:      true,
	}
}
