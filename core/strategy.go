package core

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/signalsfoundry/station-placer/model"
)

// Rand is the source of randomness used by the strategies. *rand.Rand
// satisfies it; tests pass a seeded generator for replayable placements.
type Rand interface {
	Float64() float64
}

// NewSeededRand returns a math/rand generator seeded with seed.
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// SlotPreference selects which safe slot the slot strategy uses.
type SlotPreference string

const (
	PreferOuter   SlotPreference = "outer"
	PreferInner   SlotPreference = "inner"
	PreferLargest SlotPreference = "largest"
)

// PlacementOptions is the set of recognised per-call options. Each strategy
// reads the fields that concern it and ignores the rest.
//
// A zero or negative numeric field means "use the default", so a literal zero
// cannot be requested for those. PhiRange is the exception: zero samples the
// ecliptic plane only, and nil or a negative value selects DefaultPhiRange.
type PlacementOptions struct {
	// Slot strategy.
	PreferredSlot SlotPreference
	FixedAngle    *float64 // degrees; nil samples a random azimuth

	// Sampling strategy.
	MaxAttempts        int
	MinOrbitMultiplier float64
	MaxOrbitMultiplier float64
	DefaultMinOrbit    float64 // band used when the system has no planets
	DefaultMaxOrbit    float64
	PhiRange           *float64 // elevation spread as a fraction of π
}

// Default option values.
const (
	DefaultMaxAttempts        = 100
	DefaultMinOrbitMultiplier = 0.5
	DefaultMaxOrbitMultiplier = 1.5
	DefaultMinOrbit           = 5.0
	DefaultMaxOrbit           = 40.0
	DefaultPhiRange           = 0.5
)

// WithDefaults returns o with every unset field filled in. PhiRange is always
// non-nil afterwards and never aliases the caller's value.
func (o PlacementOptions) WithDefaults() PlacementOptions {
	if o.PreferredSlot == "" {
		o.PreferredSlot = PreferOuter
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MinOrbitMultiplier <= 0 {
		o.MinOrbitMultiplier = DefaultMinOrbitMultiplier
	}
	if o.MaxOrbitMultiplier <= 0 {
		o.MaxOrbitMultiplier = DefaultMaxOrbitMultiplier
	}
	if o.DefaultMinOrbit <= 0 {
		o.DefaultMinOrbit = DefaultMinOrbit
	}
	if o.DefaultMaxOrbit <= 0 {
		o.DefaultMaxOrbit = DefaultMaxOrbit
	}
	phi := DefaultPhiRange
	if o.PhiRange != nil && *o.PhiRange >= 0 {
		phi = *o.PhiRange
	}
	o.PhiRange = &phi
	return o
}

// PlacementResult is a candidate station position plus diagnostics.
//
// A result with Fallback set was not collision-checked; callers should treat
// it as advisory and may retry with a larger budget or a wider band.
type PlacementResult struct {
	Position      Vec3
	OrbitalRadius float64
	Strategy      string
	Slot          string // label of the chosen slot (slot strategy)
	Attempts      int    // samples drawn (sampling strategy)
	Fallback      bool
}

// PlacementStrategy computes a position for one new station in a system.
// Implementations never mutate their inputs.
type PlacementStrategy interface {
	Name() string
	Place(planets []model.Planet, stations []model.Station, opts PlacementOptions) PlacementResult
}

// Strategy names accepted by StrategyByName.
const (
	StrategySlot     = "slot"
	StrategySampling = "sampling"
)

// ErrUnknownStrategy is returned by StrategyByName.
var ErrUnknownStrategy = errors.New("unknown placement strategy")

// StrategyByName builds the named strategy. "deterministic" and "stochastic"
// are accepted as aliases. A nil rng is replaced with a time-seeded one.
func StrategyByName(name string, cfg Config, rng Rand) (PlacementStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategySlot, "deterministic", "":
		return NewSlotStrategy(cfg, rng), nil
	case StrategySampling, "stochastic", "random":
		return NewSamplingStrategy(cfg, rng), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

func defaultRand(rng Rand) Rand {
	if rng != nil {
		return rng
	}
	return NewSeededRand(time.Now().UnixNano())
}
