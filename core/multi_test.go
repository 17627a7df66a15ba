package core

import (
	"testing"

	"github.com/signalsfoundry/station-placer/model"
)

func TestPlaceMultipleKeepsStationsApart(t *testing.T) {
	cfg := DefaultConfig()
	planets := []model.Planet{planetAt("A", 8, 0, 0, 1), planetAt("B", 0, 0, 20)}
	existing := []model.Station{stationAt("old", 12, 0, 12)}

	placed := PlaceMultiple(NewSamplingStrategy(cfg, NewSeededRand(4)), planets, existing, 6, PlacementOptions{})
	if len(placed) != 6 {
		t.Fatalf("placed %d stations, want 6", len(placed))
	}
	if len(existing) != 1 {
		t.Fatalf("existing slice was modified: %+v", existing)
	}

	all := append([]model.Station(nil), existing...)
	ids := map[string]bool{}
	for i, p := range placed {
		if p.Station.ID == "" || ids[p.Station.ID] {
			t.Fatalf("station %d has empty or duplicate ID %q", i, p.Station.ID)
		}
		ids[p.Station.ID] = true
		if want := "Station " + string(rune('2'+i)); p.Station.Name != want {
			t.Fatalf("station %d name = %q, want %q", i, p.Station.Name, want)
		}
		if p.Result.Fallback {
			continue
		}
		if v := ValidatePosition(VecOf(p.Station.Position), planets, all, cfg); !v.Valid {
			t.Fatalf("station %d collides with earlier placements: %s", i, v.Reason)
		}
		all = append(all, p.Station)
	}
}

func TestPlaceMultipleZeroCount(t *testing.T) {
	if got := PlaceMultiple(NewSlotStrategy(DefaultConfig(), nil), nil, nil, 0, PlacementOptions{}); got != nil {
		t.Fatalf("PlaceMultiple(0) = %+v, want nil", got)
	}
}

func TestComputeMultiplePositions(t *testing.T) {
	cfg := DefaultConfig()
	stations := ComputeMultiplePositions(nil, 4, PlacementOptions{}, cfg, NewSeededRand(8))
	if len(stations) != 4 {
		t.Fatalf("got %d stations, want 4", len(stations))
	}
	for i := range stations {
		for j := i + 1; j < len(stations); j++ {
			d := Distance3D(VecOf(stations[i].Position), VecOf(stations[j].Position))
			if d < cfg.StationToStation {
				t.Fatalf("stations %d and %d are %v apart", i, j, d)
			}
		}
	}
}
