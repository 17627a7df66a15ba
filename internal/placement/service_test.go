package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/observability"
	"github.com/signalsfoundry/station-placer/kb"
	"github.com/signalsfoundry/station-placer/model"
)

func moonOrbit(v float64) *float64 { return &v }

func singlePlanetSystem(id string) model.StarSystem {
	return model.StarSystem{
		ID:      id,
		Name:    "System " + id,
		Planets: []model.Planet{{Name: "P", Position: model.Position{X: 10}}},
	}
}

func newTestService(t *testing.T, systems ...model.StarSystem) (*Service, *kb.Store, *observability.PlacementCollector) {
	t.Helper()
	store := kb.NewStore()
	for _, sys := range systems {
		if err := store.AddSystem(sys); err != nil {
			t.Fatalf("AddSystem(%s): %v", sys.ID, err)
		}
	}
	collector, err := observability.NewPlacementCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewPlacementCollector: %v", err)
	}
	svc := NewService(store, WithSeed(42), WithMetrics(collector))
	t.Cleanup(svc.Close)
	return svc, store, collector
}

func fixedAngle(deg float64) core.PlacementOptions {
	return core.PlacementOptions{FixedAngle: &deg}
}

func TestPlaceStoresStation(t *testing.T) {
	svc, store, collector := newTestService(t, singlePlanetSystem("sol"))

	res, err := svc.Place(context.Background(), "sol", Request{Strategy: "slot", Options: fixedAngle(0)})
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if !res.Stored || res.Placement.Fallback {
		t.Fatalf("result = %+v, want stored non-fallback", res)
	}
	if res.Placement.Slot != core.SlotLabelOuterSystem || math.Abs(res.Placement.OrbitalRadius-21) > 1e-9 {
		t.Fatalf("placement = %+v, want outer slot at radius 21", res.Placement)
	}
	if res.Station.Name != "Station 1" || res.Station.ID == "" {
		t.Fatalf("station = %+v, want generated ID and name Station 1", res.Station)
	}
	if math.Abs(res.Orbit.Radius-21) > 1e-9 {
		t.Fatalf("orbit radius = %v, want 21", res.Orbit.Radius)
	}

	sys, err := store.GetSystem("sol")
	if err != nil {
		t.Fatalf("GetSystem: %v", err)
	}
	if len(sys.Stations) != 1 || sys.Stations[0].ID != res.Station.ID {
		t.Fatalf("stored stations = %+v", sys.Stations)
	}

	if got := testutil.ToFloat64(collector.Placements.WithLabelValues("slot", observability.OutcomePlaced)); got != 1 {
		t.Fatalf("placements_total{slot,placed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.StoreStations); got != 1 {
		t.Fatalf("store_stations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.StoreSystems); got != 1 {
		t.Fatalf("store_systems = %v, want 1", got)
	}
}

func TestPlaceDryRunDoesNotStore(t *testing.T) {
	svc, store, _ := newTestService(t, singlePlanetSystem("sol"))

	res, err := svc.Place(context.Background(), "sol", Request{Strategy: "sampling", DryRun: true, Name: "Scout"})
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if res.Stored || res.Station.Name != "Scout" {
		t.Fatalf("result = %+v, want unstored station named Scout", res)
	}
	sys, _ := store.GetSystem("sol")
	if len(sys.Stations) != 0 {
		t.Fatalf("dry run stored %d stations", len(sys.Stations))
	}
}

func TestPlaceErrors(t *testing.T) {
	svc, _, collector := newTestService(t, singlePlanetSystem("sol"))
	ctx := context.Background()

	if _, err := svc.Place(ctx, "sol", Request{Strategy: "warp"}); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("unknown strategy err = %v, want ErrUnknownStrategy", err)
	}
	if _, err := svc.Place(ctx, "nowhere", Request{}); !errors.Is(err, ErrSystemNotFound) {
		t.Fatalf("unknown system err = %v, want ErrSystemNotFound", err)
	}
	if _, err := svc.PlaceMany(ctx, "sol", 0, Request{}); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("zero count err = %v, want ErrInvalidCount", err)
	}
	if _, err := svc.PlaceMany(ctx, "sol", 3, Request{Strategy: "hyperspace"}); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("PlaceMany unknown strategy err = %v, want ErrUnknownStrategy", err)
	}
	if got := testutil.ToFloat64(collector.Placements.WithLabelValues("slot", observability.OutcomeError)); got != 2 {
		t.Fatalf("placements_total{slot,error} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Placements.WithLabelValues(observability.StrategyUnknown, observability.OutcomeError)); got != 2 {
		t.Fatalf("placements_total{unknown,error} = %v, want 2", got)
	}
	// Only the slot and unknown series exist; raw names are never labels.
	if got := testutil.CollectAndCount(collector.Placements); got != 2 {
		t.Fatalf("placements_total series = %d, want 2", got)
	}
}

func TestPlaceFallbackIsStoredAndLogged(t *testing.T) {
	sys := model.StarSystem{
		ID: "crowded",
		Planets: []model.Planet{{
			Name:     "Giant",
			Position: model.Position{X: 10},
			Moons:    []model.Moon{{Name: "Huge", OrbitRadius: moonOrbit(100)}},
		}},
	}
	store := kb.NewStore()
	if err := store.AddSystem(sys); err != nil {
		t.Fatalf("AddSystem: %v", err)
	}
	var buf bytes.Buffer
	svc := NewService(store, WithSeed(1), WithLogger(logging.New(logging.Config{Format: "json", Output: &buf})))

	res, err := svc.Place(context.Background(), "crowded", Request{Strategy: "sampling"})
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if !res.Placement.Fallback || !res.Stored {
		t.Fatalf("result = %+v, want stored fallback", res)
	}
	if res.Station.Position != (model.Position{X: 10}) {
		t.Fatalf("fallback position = %+v, want (10, 0, 0)", res.Station.Position)
	}

	var sawWarn bool
	var placementID string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal log line %q: %v", line, err)
		}
		id, _ := entry["placement_id"].(string)
		if id == "" {
			t.Fatalf("log line without placement_id: %v", entry)
		}
		if placementID != "" && id != placementID {
			t.Fatalf("placement_id changed within one placement: %q vs %q", placementID, id)
		}
		placementID = id
		if entry["level"] == "WARN" && entry["msg"] == "placement used fallback position" {
			sawWarn = true
		}
	}
	if !sawWarn {
		t.Fatalf("expected fallback warning in logs:\n%s", buf.String())
	}
}

func TestPlaceManyAddsObstacles(t *testing.T) {
	svc, store, _ := newTestService(t, singlePlanetSystem("sol"))
	cfg := svc.Config()

	results, err := svc.PlaceMany(context.Background(), "sol", 4, Request{Strategy: "sampling"})
	if err != nil {
		t.Fatalf("PlaceMany error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, r := range results {
		if want := "Station " + string(rune('1'+i)); r.Station.Name != want {
			t.Fatalf("results[%d].Name = %q, want %q", i, r.Station.Name, want)
		}
	}
	for i := range results {
		for j := i + 1; j < len(results); j++ {
			a, b := results[i], results[j]
			if a.Placement.Fallback || b.Placement.Fallback {
				continue
			}
			d := core.VecOf(a.Station.Position).DistanceTo(core.VecOf(b.Station.Position))
			if d < cfg.StationToStation {
				t.Fatalf("stations %d and %d are %v apart, want >= %v", i, j, d, cfg.StationToStation)
			}
		}
	}
	sys, _ := store.GetSystem("sol")
	if len(sys.Stations) != 4 {
		t.Fatalf("stored %d stations, want 4", len(sys.Stations))
	}
}

func TestConcurrentPlacementsIntoOneSystem(t *testing.T) {
	svc, store, _ := newTestService(t, singlePlanetSystem("sol"), singlePlanetSystem("vega"))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for _, id := range []string{"sol", "vega"} {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Place(context.Background(), id, Request{Strategy: "sampling"}); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Place error: %v", err)
	}
	for _, id := range []string{"sol", "vega"} {
		sys, _ := store.GetSystem(id)
		if len(sys.Stations) != 10 {
			t.Fatalf("%s has %d stations, want 10", id, len(sys.Stations))
		}
	}
}

func TestValidate(t *testing.T) {
	sys := singlePlanetSystem("sol")
	sys.Stations = []model.Station{{ID: "s1", Name: "Relay", Position: model.Position{X: 21}}}
	svc, _, collector := newTestService(t, sys)
	ctx := context.Background()

	v, err := svc.Validate(ctx, "sol", model.Position{X: 11}, "")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if v.Valid || v.Collision.Kind != core.CollisionPlanet {
		t.Fatalf("near planet = %+v, want planet collision", v)
	}

	v, _ = svc.Validate(ctx, "sol", model.Position{X: 21.5}, "")
	if v.Valid || v.Collision.Kind != core.CollisionStation {
		t.Fatalf("near station = %+v, want station collision", v)
	}

	v, _ = svc.ValidateStation(ctx, "sol", "s1")
	if !v.Valid {
		t.Fatalf("stored station = %+v, want valid when excluding itself", v)
	}

	v, _ = svc.Validate(ctx, "sol", model.Position{X: math.NaN()}, "")
	if v.Valid {
		t.Fatalf("NaN position reported valid")
	}

	if _, err := svc.ValidateStation(ctx, "sol", "ghost"); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("ValidateStation(ghost) err = %v, want ErrStationNotFound", err)
	}

	if got := testutil.ToFloat64(collector.Validations.WithLabelValues("invalid", "planet")); got != 1 {
		t.Fatalf("position_validations_total{invalid,planet} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Validations.WithLabelValues("invalid", "non_finite")); got != 1 {
		t.Fatalf("position_validations_total{invalid,non_finite} = %v, want 1", got)
	}
}

func TestDescribeAndSlots(t *testing.T) {
	sys := singlePlanetSystem("sol")
	sys.Stations = []model.Station{{ID: "s1", Position: model.Position{Z: 21}}}
	svc, _, _ := newTestService(t, sys)

	d, err := svc.Describe("sol", "s1")
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if math.Abs(d.Radius-21) > 1e-9 || math.Abs(d.AngleDegrees-90) > 1e-9 {
		t.Fatalf("Describe = %+v, want radius 21 at 90 degrees", d)
	}

	listing, err := svc.Slots("sol")
	if err != nil {
		t.Fatalf("Slots error: %v", err)
	}
	if len(listing.Zones) != 1 || len(listing.Slots) != 2 {
		t.Fatalf("Slots = %+v, want one zone and inner+outer slots", listing)
	}
}

func TestAuditFindsInvalidStations(t *testing.T) {
	bad := singlePlanetSystem("bad")
	bad.Stations = []model.Station{
		{ID: "close", Name: "Too Close", Position: model.Position{X: 10.5}},
		{ID: "fine", Name: "Fine", Position: model.Position{X: -25}},
	}
	good := singlePlanetSystem("good")
	good.Stations = []model.Station{{ID: "ok", Position: model.Position{X: 21}}}
	svc, _, _ := newTestService(t, good, bad)

	rep, err := svc.Audit(context.Background(), "bad")
	if err != nil {
		t.Fatalf("Audit error: %v", err)
	}
	if rep.Checked != 2 || len(rep.Invalid) != 1 || rep.Invalid[0].Station.ID != "close" {
		t.Fatalf("Audit = %+v, want only station close flagged", rep)
	}

	reports, err := svc.AuditAll(context.Background())
	if err != nil {
		t.Fatalf("AuditAll error: %v", err)
	}
	if len(reports) != 2 || reports[0].SystemID != "bad" || reports[1].SystemID != "good" {
		t.Fatalf("AuditAll order = %+v, want bad then good", reports)
	}
	if n := InvalidCount(reports); n != 1 {
		t.Fatalf("InvalidCount = %d, want 1", n)
	}
}

func TestAuditAllHonoursCancellation(t *testing.T) {
	svc, _, _ := newTestService(t, singlePlanetSystem("sol"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.AuditAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("AuditAll err = %v, want context.Canceled", err)
	}
}

func TestPlaceEmitsSpan(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	svc, _, _ := newTestService(t, singlePlanetSystem("sol"))
	if _, err := svc.Place(context.Background(), "sol", Request{}); err != nil {
		t.Fatalf("Place error: %v", err)
	}

	var found bool
	for _, s := range rec.Ended() {
		if s.Name() != "placement.Place" {
			continue
		}
		found = true
		attrs := map[string]bool{}
		for _, kv := range s.Attributes() {
			attrs[string(kv.Key)] = true
		}
		for _, key := range []string{"system_id", "placement_id", "station_id", "orbital_radius", "fallback"} {
			if !attrs[key] {
				t.Fatalf("span missing attribute %q: %v", key, s.Attributes())
			}
		}
	}
	if !found {
		t.Fatalf("no placement.Place span recorded")
	}
}
