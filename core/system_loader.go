// core/system_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/station-placer/model"
)

// Format is the encoding of a star-system document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath guesses the format from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// document shapes stay unexported so the on-disk layout can evolve
// independently of model.
type starSystemDoc struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Planets  []planetDoc  `json:"planets" yaml:"planets"`
	Stations []stationDoc `json:"stations" yaml:"stations"`
}

type planetDoc struct {
	Name  string    `json:"name" yaml:"name"`
	X     float64   `json:"x" yaml:"x"`
	Y     float64   `json:"y" yaml:"y"`
	Z     float64   `json:"z" yaml:"z"`
	Moons []moonDoc `json:"moons" yaml:"moons"`
}

// Older exports call the moon radius orbit_distance.
type moonDoc struct {
	Name          string   `json:"name" yaml:"name"`
	OrbitRadius   *float64 `json:"orbit_radius" yaml:"orbit_radius"`
	OrbitDistance *float64 `json:"orbit_distance" yaml:"orbit_distance"`
}

type stationDoc struct {
	ID   string  `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Z    float64 `json:"z" yaml:"z"`
}

// LoadStarSystem decodes one star system from r.
//
// It rejects documents the engine cannot reason about: planets without a
// name, duplicate planet or station IDs, negative moon orbits and
// non-finite coordinates. Everything else, including a system with no
// bodies at all, is accepted.
func LoadStarSystem(r io.Reader, format Format) (model.StarSystem, error) {
	var doc starSystemDoc
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: decode failed: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: decode failed: %w", err)
		}
	}

	sys := model.StarSystem{
		ID:       doc.ID,
		Name:     doc.Name,
		Planets:  make([]model.Planet, 0, len(doc.Planets)),
		Stations: make([]model.Station, 0, len(doc.Stations)),
	}

	seenPlanets := make(map[string]bool, len(doc.Planets))
	for i, pd := range doc.Planets {
		if pd.Name == "" {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: planet %d has empty name", i)
		}
		if seenPlanets[pd.Name] {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: duplicate planet %q", pd.Name)
		}
		seenPlanets[pd.Name] = true
		if !finite(pd.X, pd.Y, pd.Z) {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: planet %q has non-finite position", pd.Name)
		}

		planet := model.Planet{
			Name:     pd.Name,
			Position: model.Position{X: pd.X, Y: pd.Y, Z: pd.Z},
		}
		for _, md := range pd.Moons {
			orbit := md.OrbitRadius
			if orbit == nil {
				orbit = md.OrbitDistance
			}
			if orbit != nil && (!finite(*orbit) || *orbit < 0) {
				return model.StarSystem{}, fmt.Errorf("LoadStarSystem: moon %q of %q has invalid orbit %v", md.Name, pd.Name, *orbit)
			}
			planet.Moons = append(planet.Moons, model.Moon{Name: md.Name, OrbitRadius: orbit})
		}
		sys.Planets = append(sys.Planets, planet)
	}

	seenStations := make(map[string]bool, len(doc.Stations))
	for i, sd := range doc.Stations {
		if sd.ID != "" {
			if seenStations[sd.ID] {
				return model.StarSystem{}, fmt.Errorf("LoadStarSystem: duplicate station id %q", sd.ID)
			}
			seenStations[sd.ID] = true
		}
		if !finite(sd.X, sd.Y, sd.Z) {
			return model.StarSystem{}, fmt.Errorf("LoadStarSystem: station %d has non-finite position", i)
		}
		sys.Stations = append(sys.Stations, model.Station{
			ID:       sd.ID,
			Name:     sd.Name,
			Position: model.Position{X: sd.X, Y: sd.Y, Z: sd.Z},
		})
	}

	return sys, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
