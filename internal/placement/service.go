// internal/placement/service.go
package placement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/observability"
	"github.com/signalsfoundry/station-placer/kb"
	"github.com/signalsfoundry/station-placer/model"
)

// Re-export sentinel errors so callers can depend on placement.* only.
var (
	// ErrSystemNotFound indicates the requested star system is not stored.
	ErrSystemNotFound = kb.ErrSystemNotFound
	// ErrStationNotFound indicates the requested station is not stored.
	ErrStationNotFound = kb.ErrStationNotFound
	// ErrUnknownStrategy indicates the requested strategy name is not known.
	ErrUnknownStrategy = core.ErrUnknownStrategy
	// ErrInvalidCount indicates a batch placement asked for no stations.
	ErrInvalidCount = errors.New("station count must be positive")
)

// Request describes a single placement.
type Request struct {
	// Strategy is "slot" or "sampling" (aliases accepted); empty means slot.
	Strategy string
	Options  core.PlacementOptions
	// Name overrides the generated "Station N" name. Ignored by PlaceMany.
	Name string
	// DryRun computes the position without storing the station.
	DryRun bool
}

// Result reports one placed station.
type Result struct {
	SystemID  string
	Station   model.Station
	Placement core.PlacementResult
	Orbit     core.OrbitDescription
	Stored    bool
}

// Finding is a stored station that violates a clearance rule.
type Finding struct {
	Station    model.Station
	Validation core.Validation
}

// Report is the outcome of auditing one star system.
type Report struct {
	SystemID string
	Checked  int
	Invalid  []Finding
}

// SlotListing is the zone and slot layout of a star system.
type SlotListing struct {
	SystemID string
	Zones    []core.OrbitalZone
	Slots    []core.SafeSlot
}

// MetricsRecorder receives placement measurements.
type MetricsRecorder interface {
	ObservePlacement(strategy string, attempts int, fallback bool)
	IncPlacementError(strategy string)
	ObserveOperation(operation string, d time.Duration)
	ObserveValidation(valid bool, kind string)
	SetStoreCounts(systems, stations int)
}

// Service runs placements against the systems held in a kb.Store. Placements
// into the same system are serialized; different systems proceed in
// parallel.
type Service struct {
	store *kb.Store
	cfg   core.Config
	rng   core.Rand

	log     logging.Logger
	metrics MetricsRecorder

	// locks holds one mutex per system ID, created on first use.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	unsubscribe func()
}

// Option customises Service construction.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder and keeps its store gauges in sync
// with the store.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConfig overrides core.DefaultConfig().
func WithConfig(cfg core.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithSeed makes the random source reproducible.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.rng = &lockedRand{r: core.NewSeededRand(seed)}
	}
}

// WithRand injects a random source. It is wrapped so concurrent placements
// into different systems can share it.
func WithRand(rng core.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = &lockedRand{r: rng}
		}
	}
}

// NewService wires a placement service over store.
func NewService(store *kb.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cfg:   core.DefaultConfig(),
		rng:   &lockedRand{r: core.NewSeededRand(time.Now().UnixNano())},
		log:   logging.Noop(),
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics != nil {
		s.updateStoreMetrics()
		s.unsubscribe = store.Subscribe(func(kb.Event) { s.updateStoreMetrics() })
	}
	return s
}

// Close detaches the service from store notifications.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Config returns the clearance configuration in use.
func (s *Service) Config() core.Config { return s.cfg }

// Place runs the requested strategy against the stored system and, unless
// req.DryRun, stores the new station. A fallback position is stored too; it
// is flagged on the result so the caller can remove it.
func (s *Service) Place(ctx context.Context, systemID string, req Request) (res Result, err error) {
	start := time.Now()
	ctx, log := logging.WithPlacementLogger(ctx, s.log)
	ctx, span := observability.StartSpan(ctx, "placement.Place", systemID,
		attribute.String("strategy", req.Strategy),
		attribute.Bool("dry_run", req.DryRun),
	)
	defer func() {
		observability.EndSpan(span, err)
		s.observeOperation("place", start)
	}()

	strategy, err := core.StrategyByName(req.Strategy, s.cfg, s.rng)
	if err != nil {
		s.placementError(observability.StrategyUnknown)
		return Result{}, err
	}

	unlock := s.lockSystem(systemID)
	defer unlock()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		s.placementError(strategy.Name())
		return Result{}, err
	}

	pr := strategy.Place(sys.Planets, sys.Stations, req.Options)
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Station %d", len(sys.Stations)+1)
	}
	st := model.Station{
		ID:       uuid.NewString(),
		Name:     name,
		Position: pr.Position.Position(),
	}
	res = s.newResult(systemID, st, pr)

	if !req.DryRun {
		if err = s.store.AddStation(systemID, st); err != nil {
			s.placementError(strategy.Name())
			return Result{}, err
		}
		res.Stored = true
	}

	s.recordPlacement(ctx, log, res)
	span.SetAttributes(
		attribute.String("station_id", st.ID),
		attribute.Float64("orbital_radius", pr.OrbitalRadius),
		attribute.Int("attempts", pr.Attempts),
		attribute.Bool("fallback", pr.Fallback),
	)
	return res, nil
}

// PlaceMany places count stations one after another; each becomes an
// obstacle for the next. Stations are stored unless req.DryRun.
func (s *Service) PlaceMany(ctx context.Context, systemID string, count int, req Request) (results []Result, err error) {
	start := time.Now()
	ctx, log := logging.WithPlacementLogger(ctx, s.log)
	ctx, span := observability.StartSpan(ctx, "placement.PlaceMany", systemID,
		attribute.String("strategy", req.Strategy),
		attribute.Int("count", count),
		attribute.Bool("dry_run", req.DryRun),
	)
	defer func() {
		observability.EndSpan(span, err)
		s.observeOperation("place_many", start)
	}()

	strategy, err := core.StrategyByName(req.Strategy, s.cfg, s.rng)
	if err != nil {
		s.placementError(observability.StrategyUnknown)
		return nil, err
	}
	if count <= 0 {
		s.placementError(strategy.Name())
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	unlock := s.lockSystem(systemID)
	defer unlock()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		s.placementError(strategy.Name())
		return nil, err
	}

	placed := core.PlaceMultiple(strategy, sys.Planets, sys.Stations, count, req.Options)
	results = make([]Result, 0, len(placed))
	for _, p := range placed {
		r := s.newResult(systemID, p.Station, p.Result)
		if !req.DryRun {
			if err = s.store.AddStation(systemID, p.Station); err != nil {
				s.placementError(strategy.Name())
				return results, err
			}
			r.Stored = true
		}
		s.recordPlacement(ctx, log, r)
		results = append(results, r)
	}
	return results, nil
}

// Validate checks pos against the stored system. excludeStationID names a
// station to leave out of the check, normally the one being validated.
func (s *Service) Validate(ctx context.Context, systemID string, pos model.Position, excludeStationID string) (v core.Validation, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "placement.Validate", systemID)
	defer func() {
		observability.EndSpan(span, err)
		s.observeOperation("validate", start)
	}()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return core.Validation{}, err
	}
	v = core.ValidatePosition(core.VecOf(pos), sys.Planets, core.ExcludeStation(sys.Stations, excludeStationID), s.cfg)
	s.observeValidation(v)
	span.SetAttributes(attribute.Bool("valid", v.Valid))
	if !v.Valid {
		s.log.Debug(ctx, "position rejected",
			logging.String("system_id", systemID),
			logging.String("reason", v.Reason),
		)
	}
	return v, nil
}

// ValidateStation re-checks a stored station against everything else in its
// system.
func (s *Service) ValidateStation(ctx context.Context, systemID, stationID string) (core.Validation, error) {
	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return core.Validation{}, err
	}
	st, ok := sys.StationByID(stationID)
	if !ok {
		return core.Validation{}, fmt.Errorf("%w: %q", ErrStationNotFound, stationID)
	}
	return s.Validate(ctx, systemID, st.Position, stationID)
}

// Describe reports the orbit of a stored station.
func (s *Service) Describe(systemID, stationID string) (core.OrbitDescription, error) {
	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return core.OrbitDescription{}, err
	}
	st, ok := sys.StationByID(stationID)
	if !ok {
		return core.OrbitDescription{}, fmt.Errorf("%w: %q", ErrStationNotFound, stationID)
	}
	return core.DescribeOrbit(core.VecOf(st.Position)), nil
}

// Slots lists the orbital zones and safe slots of a stored system.
func (s *Service) Slots(systemID string) (SlotListing, error) {
	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return SlotListing{}, err
	}
	return SlotListing{
		SystemID: systemID,
		Zones:    core.ComputeZones(sys.Planets, s.cfg),
		Slots:    core.FindSafeSlots(sys.Planets, s.cfg),
	}, nil
}

func (s *Service) newResult(systemID string, st model.Station, pr core.PlacementResult) Result {
	return Result{
		SystemID:  systemID,
		Station:   st,
		Placement: pr,
		Orbit:     core.DescribeOrbit(pr.Position),
	}
}

func (s *Service) recordPlacement(ctx context.Context, log logging.Logger, r Result) {
	pr := r.Placement
	if s.metrics != nil {
		s.metrics.ObservePlacement(pr.Strategy, pr.Attempts, pr.Fallback)
	}
	fields := []logging.Field{
		logging.String("system_id", r.SystemID),
		logging.String("station_id", r.Station.ID),
		logging.String("strategy", pr.Strategy),
		logging.Float("radius", pr.OrbitalRadius),
		logging.Int("attempts", pr.Attempts),
		logging.Bool("fallback", pr.Fallback),
		logging.Bool("stored", r.Stored),
	}
	if pr.Slot != "" {
		fields = append(fields, logging.String("slot", pr.Slot))
	}
	log.Info(ctx, "station placed", fields...)
	if pr.Fallback {
		log.Warn(ctx, "placement used fallback position",
			logging.String("system_id", r.SystemID),
			logging.String("station_id", r.Station.ID),
			logging.String("orbit", r.Orbit.Description),
		)
	}
}

func (s *Service) placementError(strategy string) {
	if s.metrics != nil {
		s.metrics.IncPlacementError(strategy)
	}
}

func (s *Service) observeValidation(v core.Validation) {
	if s.metrics == nil {
		return
	}
	kind := ""
	if !v.Valid {
		kind = v.Collision.Kind.String()
		if !v.Collision.Collides() {
			kind = "non_finite"
		}
	}
	s.metrics.ObserveValidation(v.Valid, kind)
}

func (s *Service) observeOperation(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, time.Since(start))
	}
}

func (s *Service) updateStoreMetrics() {
	systems, stations := s.store.Counts()
	s.metrics.SetStoreCounts(systems, stations)
}

// lockSystem takes the per-system placement lock and returns its release.
func (s *Service) lockSystem(id string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// lockedRand serializes access to a random source that is not safe for
// concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  core.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
