package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/station-placer/model"
)

func TestSlotStrategyEmptySystemRadius(t *testing.T) {
	cfg := DefaultConfig()
	for seed := int64(1); seed <= 20; seed++ {
		res := NewSlotStrategy(cfg, NewSeededRand(seed)).Place(nil, nil, PlacementOptions{})
		if res.Fallback {
			t.Fatalf("seed %d: unexpected fallback", seed)
		}
		r := res.Position.Norm()
		if r < cfg.StationToSun+2 || r > 40 {
			t.Fatalf("seed %d: radius %v outside [%v, 40]", seed, r, cfg.StationToSun+2)
		}
		if !approx(r, res.OrbitalRadius) {
			t.Fatalf("seed %d: position radius %v != reported %v", seed, r, res.OrbitalRadius)
		}
	}
}

func TestSlotStrategyOuterSlotSinglePlanet(t *testing.T) {
	planets := []model.Planet{planetAt("P", 10, 0, 0)}
	res := NewSlotStrategy(DefaultConfig(), NewSeededRand(7)).Place(planets, nil, PlacementOptions{})
	if res.Slot != SlotLabelOuterSystem {
		t.Fatalf("Slot = %q, want %q", res.Slot, SlotLabelOuterSystem)
	}
	if res.OrbitalRadius < 14 || res.OrbitalRadius > 28 {
		t.Fatalf("OrbitalRadius = %v, want within [14, 28]", res.OrbitalRadius)
	}
	if !approx(res.OrbitalRadius, 21) {
		t.Fatalf("OrbitalRadius = %v, want slot midpoint 21", res.OrbitalRadius)
	}
}

func TestSlotStrategyPreferences(t *testing.T) {
	planets := []model.Planet{
		planetAt("A", 10, 0, 0),
		planetAt("B", 50, 0, 0),
	}
	strategy := NewSlotStrategy(DefaultConfig(), NewSeededRand(3))

	inner := strategy.Place(planets, nil, PlacementOptions{PreferredSlot: PreferInner})
	if inner.Slot != SlotLabelInnerSystem || !approx(inner.OrbitalRadius, 5.25) {
		t.Fatalf("inner = %+v, want inner system at 5.25", inner)
	}

	largest := strategy.Place(planets, nil, PlacementOptions{PreferredSlot: PreferLargest})
	if largest.Slot != "between A and B" || !approx(largest.OrbitalRadius, 30) {
		t.Fatalf("largest = %+v, want between A and B at 30", largest)
	}

	outer := strategy.Place(planets, nil, PlacementOptions{PreferredSlot: PreferOuter})
	if outer.Slot != SlotLabelOuterSystem || !approx(outer.OrbitalRadius, 61) {
		t.Fatalf("outer = %+v, want outer system at 61", outer)
	}
}

func TestSlotStrategyFixedAngle(t *testing.T) {
	angle := 90.0
	res := NewSlotStrategy(DefaultConfig(), NewSeededRand(11)).Place(nil, nil, PlacementOptions{FixedAngle: &angle})
	if got := res.Position.Azimuth(); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("azimuth = %v, want π/2", got)
	}
}

func TestSlotStrategyElevationWithinJitter(t *testing.T) {
	cfg := DefaultConfig()
	strategy := NewSlotStrategy(cfg, NewSeededRand(5))
	for i := 0; i < 50; i++ {
		res := strategy.Place(nil, nil, PlacementOptions{})
		elev := math.Asin(res.Position.Y / res.Position.Norm())
		if math.Abs(elev) > cfg.ElevationJitter+1e-12 {
			t.Fatalf("elevation %v exceeds jitter %v", elev, cfg.ElevationJitter)
		}
	}
}

func TestSlotStrategyFlipsAwayFromNeighbor(t *testing.T) {
	cfg := DefaultConfig()
	// Open system slot midpoint is 21.75; the station shares that orbit at
	// azimuth 0 and the sampled azimuth lands right next to it.
	stations := []model.Station{stationAt("s1", 21.75, 0, 0)}
	rng := &seqRand{vals: []float64{0.01, 0.5}}

	res := NewSlotStrategy(cfg, rng).Place(nil, stations, PlacementOptions{})
	sep := angularSeparation(res.Position.Azimuth(), 0)
	if sep < cfg.MinAngularSeparation {
		t.Fatalf("separation %v < %v; azimuth was not flipped", sep, cfg.MinAngularSeparation)
	}
	want := normalizeAngle(0.01*2*math.Pi + math.Pi)
	if math.Abs(res.Position.Azimuth()-want) > 1e-9 {
		t.Fatalf("azimuth = %v, want %v", res.Position.Azimuth(), want)
	}
}

func TestSlotStrategyIgnoresDistantOrbits(t *testing.T) {
	// Same azimuth but 10 units further out than the slot midpoint.
	stations := []model.Station{stationAt("s1", 31.75, 0, 0)}
	rng := &seqRand{vals: []float64{0.01, 0.5}}

	res := NewSlotStrategy(DefaultConfig(), rng).Place(nil, stations, PlacementOptions{})
	if want := 0.01 * 2 * math.Pi; math.Abs(res.Position.Azimuth()-want) > 1e-9 {
		t.Fatalf("azimuth = %v, want unflipped %v", res.Position.Azimuth(), want)
	}
}

func TestSlotStrategySinglePassFlip(t *testing.T) {
	// Stations at azimuth 0 and π on the same orbit. The first flips the
	// candidate onto the second, which flips it back: one pass only.
	stations := []model.Station{
		stationAt("s1", 21.75, 0, 0),
		stationAt("s2", -21.75, 0, 0),
	}
	rng := &seqRand{vals: []float64{0.01, 0.5}}

	res := NewSlotStrategy(DefaultConfig(), rng).Place(nil, stations, PlacementOptions{})
	if want := 0.01 * 2 * math.Pi; math.Abs(res.Position.Azimuth()-want) > 1e-9 {
		t.Fatalf("azimuth = %v, want %v after two flips", res.Position.Azimuth(), want)
	}
}

func TestSlotStrategyResultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	planets := []model.Planet{
		planetAt("A", 10, 0, 0, 1.5),
		planetAt("B", 0, 0, -30, 0.5, 2.5),
		planetAt("C", 55, 2, 0),
	}
	for _, pref := range []SlotPreference{PreferInner, PreferOuter, PreferLargest} {
		strategy := NewSlotStrategy(cfg, NewSeededRand(int64(len(pref))))
		for i := 0; i < 20; i++ {
			res := strategy.Place(planets, nil, PlacementOptions{PreferredSlot: pref})
			if v := ValidatePosition(res.Position, planets, nil, cfg); !v.Valid {
				t.Fatalf("%s placement %+v invalid: %s", pref, res, v.Reason)
			}
		}
	}
}
