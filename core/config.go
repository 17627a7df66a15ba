package core

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Config holds every distance and budget the placement engine uses. All
// distances are in system units. Use DefaultConfig and override fields as
// needed; the zero Config is not useful.
type Config struct {
	// OrbitalBuffer is the clearance added around a planet and its moons
	// when computing its orbital zone.
	OrbitalBuffer float64 `yaml:"orbital_buffer"`

	// Minimum separations enforced by the collision checker.
	StationToSun     float64 `yaml:"station_to_sun"`
	StationToPlanet  float64 `yaml:"station_to_planet"`
	StationToMoon    float64 `yaml:"station_to_moon"` // added to the moon's orbit radius
	StationToStation float64 `yaml:"station_to_station"`

	// DefaultMoonOrbit substitutes for a moon with no recorded orbit radius.
	DefaultMoonOrbit float64 `yaml:"default_moon_orbit"`

	// Slot finder.
	MinSlotWidth    float64 `yaml:"min_slot_width"`
	SlotMargin      float64 `yaml:"slot_margin"`
	InnerClearance  float64 `yaml:"inner_clearance"` // inner slots start at StationToSun+InnerClearance
	OuterSlotGap    float64 `yaml:"outer_slot_gap"`
	OuterSlotExtent float64 `yaml:"outer_slot_extent"`
	OpenSystemOuter float64 `yaml:"open_system_outer"`

	// Slot strategy angular heuristic.
	NeighborRadiusWindow float64 `yaml:"neighbor_radius_window"`
	MinAngularSeparation float64 `yaml:"min_angular_separation"` // radians
	ElevationJitter      float64 `yaml:"elevation_jitter"`       // radians either side of the ecliptic
	FallbackRadius       float64 `yaml:"fallback_radius"`

	// Sampling strategy.
	MinOrbitFloorOffset      float64 `yaml:"min_orbit_floor_offset"` // minOrbit >= StationToSun+offset
	StochasticFallbackOffset float64 `yaml:"stochastic_fallback_offset"`
}

// DefaultConfig returns the stock game-scale configuration.
func DefaultConfig() Config {
	return Config{
		OrbitalBuffer: 3.0,

		StationToSun:     1.5,
		StationToPlanet:  2.0,
		StationToMoon:    1.5,
		StationToStation: 1.5,

		DefaultMoonOrbit: 0.5,

		MinSlotWidth:    2.0,
		SlotMargin:      0.5,
		InnerClearance:  2.0,
		OuterSlotGap:    1.0,
		OuterSlotExtent: 15.0,
		OpenSystemOuter: 40.0,

		NeighborRadiusWindow: 5.0,
		MinAngularSeparation: math.Pi / 4,
		ElevationJitter:      0.1,
		FallbackRadius:       10.0,

		MinOrbitFloorOffset:      1.0,
		StochasticFallbackOffset: 5.0,
	}
}

// ErrInvalidConfig is returned by Validate and LoadConfig.
var ErrInvalidConfig = errors.New("invalid placement config")

// Validate rejects negative or non-finite values.
func (c Config) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"orbital_buffer", c.OrbitalBuffer},
		{"station_to_sun", c.StationToSun},
		{"station_to_planet", c.StationToPlanet},
		{"station_to_moon", c.StationToMoon},
		{"station_to_station", c.StationToStation},
		{"default_moon_orbit", c.DefaultMoonOrbit},
		{"min_slot_width", c.MinSlotWidth},
		{"slot_margin", c.SlotMargin},
		{"inner_clearance", c.InnerClearance},
		{"outer_slot_gap", c.OuterSlotGap},
		{"outer_slot_extent", c.OuterSlotExtent},
		{"open_system_outer", c.OpenSystemOuter},
		{"neighbor_radius_window", c.NeighborRadiusWindow},
		{"min_angular_separation", c.MinAngularSeparation},
		{"elevation_jitter", c.ElevationJitter},
		{"fallback_radius", c.FallbackRadius},
		{"min_orbit_floor_offset", c.MinOrbitFloorOffset},
		{"stochastic_fallback_offset", c.StochasticFallbackOffset},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.OpenSystemOuter <= c.StationToSun+c.InnerClearance {
		return fmt.Errorf("%w: open_system_outer %v must exceed station_to_sun+inner_clearance %v",
			ErrInvalidConfig, c.OpenSystemOuter, c.StationToSun+c.InnerClearance)
	}
	return nil
}

// LoadConfig decodes a YAML overlay from r on top of DefaultConfig. Keys that
// are absent keep their defaults. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("LoadConfig: decode failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
