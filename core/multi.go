package core

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/signalsfoundry/station-placer/model"
)

// PlacedStation pairs a newly created station with the result that produced
// its position.
type PlacedStation struct {
	Station model.Station
	Result  PlacementResult
}

// PlaceMultiple places count stations one after another. Every placed
// station, fallback or not, becomes an obstacle for the next placement in the
// batch. existing is not modified. Stations are named "Station N", numbered
// after the existing ones, and get fresh UUIDs.
func PlaceMultiple(strategy PlacementStrategy, planets []model.Planet, existing []model.Station, count int, opts PlacementOptions) []PlacedStation {
	if count <= 0 {
		return nil
	}
	obstacles := make([]model.Station, len(existing), len(existing)+count)
	copy(obstacles, existing)

	placed := make([]PlacedStation, 0, count)
	for i := 0; i < count; i++ {
		res := strategy.Place(planets, obstacles, opts)
		st := model.Station{
			ID:       uuid.NewString(),
			Name:     fmt.Sprintf("Station %d", len(existing)+i+1),
			Position: res.Position.Position(),
		}
		obstacles = append(obstacles, st)
		placed = append(placed, PlacedStation{Station: st, Result: res})
	}
	return placed
}

// ComputeMultiplePositions places count stations in a system that has none
// yet, using the sampling strategy.
func ComputeMultiplePositions(planets []model.Planet, count int, opts PlacementOptions, cfg Config, rng Rand) []model.Station {
	placed := PlaceMultiple(NewSamplingStrategy(cfg, rng), planets, nil, count, opts)
	out := make([]model.Station, 0, len(placed))
	for _, p := range placed {
		out = append(out, p.Station)
	}
	return out
}
