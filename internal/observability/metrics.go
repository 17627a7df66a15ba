package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Placement outcomes used as the "outcome" label.
const (
	OutcomePlaced   = "placed"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// StrategyUnknown is the "strategy" label for requests whose strategy name did
// not resolve. Raw names never become label values.
const StrategyUnknown = "unknown"

// PlacementCollector bundles Prometheus metrics for placement and validation
// operations and exposes them over HTTP.
type PlacementCollector struct {
	gatherer prometheus.Gatherer

	Placements         *prometheus.CounterVec
	PlacementAttempts  *prometheus.HistogramVec
	OperationDurations *prometheus.HistogramVec
	Validations        *prometheus.CounterVec

	StoreSystems  prometheus.Gauge
	StoreStations prometheus.Gauge
}

// NewPlacementCollector registers placement metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPlacementCollector(reg prometheus.Registerer) (*PlacementCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placements_total",
		Help: "Total number of station placements, labeled by strategy and outcome.",
	}, []string{"strategy", "outcome"})
	placements, err := registerCounterVec(reg, placements, "placements_total")
	if err != nil {
		return nil, err
	}

	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placement_attempts",
		Help:    "Candidate positions examined per placement.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"strategy"})
	attempts, err = registerHistogramVec(reg, attempts, "placement_attempts")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placement_operation_duration_seconds",
		Help:    "Latency of placement service operations in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"operation"})
	durations, err = registerHistogramVec(reg, durations, "placement_operation_duration_seconds")
	if err != nil {
		return nil, err
	}

	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "position_validations_total",
		Help: "Total number of position validations, labeled by result and blocking body kind.",
	}, []string{"result", "kind"})
	validations, err = registerCounterVec(reg, validations, "position_validations_total")
	if err != nil {
		return nil, err
	}

	systems, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_systems",
		Help: "Current number of star systems held in the store.",
	}), "store_systems")
	if err != nil {
		return nil, err
	}
	stations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "store_stations",
		Help: "Current number of stations across all star systems.",
	}), "store_stations")
	if err != nil {
		return nil, err
	}

	return &PlacementCollector{
		gatherer:           gatherer,
		Placements:         placements,
		PlacementAttempts:  attempts,
		OperationDurations: durations,
		Validations:        validations,
		StoreSystems:       systems,
		StoreStations:      stations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PlacementCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlacementCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePlacement records one completed placement. attempts is only
// observed when the strategy sampled (attempts > 0).
func (c *PlacementCollector) ObservePlacement(strategy string, attempts int, fallback bool) {
	if c == nil {
		return
	}
	outcome := OutcomePlaced
	if fallback {
		outcome = OutcomeFallback
	}
	if c.Placements != nil {
		c.Placements.WithLabelValues(strategy, outcome).Inc()
	}
	if c.PlacementAttempts != nil && attempts > 0 {
		c.PlacementAttempts.WithLabelValues(strategy).Observe(float64(attempts))
	}
}

// IncPlacementError counts a placement request that failed before producing a
// position (unknown system, unknown strategy, bad count).
func (c *PlacementCollector) IncPlacementError(strategy string) {
	if c == nil || c.Placements == nil {
		return
	}
	if strategy == "" {
		strategy = StrategyUnknown
	}
	c.Placements.WithLabelValues(strategy, OutcomeError).Inc()
}

// ObserveOperation records the duration of a service operation.
func (c *PlacementCollector) ObserveOperation(operation string, d time.Duration) {
	if c == nil || c.OperationDurations == nil {
		return
	}
	c.OperationDurations.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveValidation counts a validation result. kind is the blocking body kind
// for invalid positions and "none" for valid ones.
func (c *PlacementCollector) ObserveValidation(valid bool, kind string) {
	if c == nil || c.Validations == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	if kind == "" {
		kind = "none"
	}
	c.Validations.WithLabelValues(result, kind).Inc()
}

// SetStoreCounts drives the store gauges; it satisfies kb's counts callback.
func (c *PlacementCollector) SetStoreCounts(systems, stations int) {
	if c == nil {
		return
	}
	if c.StoreSystems != nil {
		c.StoreSystems.Set(float64(systems))
	}
	if c.StoreStations != nil {
		c.StoreStations.Set(float64(stations))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
