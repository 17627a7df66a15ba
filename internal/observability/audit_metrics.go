package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditCollector exposes metrics for periodic station audits.
type AuditCollector struct {
	gatherer prometheus.Gatherer

	RunDuration     prometheus.Histogram
	RunsTotal       prometheus.Counter
	InvalidStations prometheus.Gauge
	LastRun         prometheus.Gauge
}

// NewAuditCollector registers audit metrics against the provided registerer.
func NewAuditCollector(reg prometheus.Registerer) (*AuditCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_run_duration_seconds",
		Help:    "Duration of full station audits across all star systems.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	duration, err := registerHistogram(reg, duration, "audit_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_runs_total",
		Help: "Cumulative number of completed audit runs.",
	})
	runs, err = registerCounter(reg, runs, "audit_runs_total")
	if err != nil {
		return nil, err
	}

	invalid := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_invalid_stations",
		Help: "Number of stations violating a clearance rule in the latest audit.",
	})
	invalid, err = registerGauge(reg, invalid, "audit_invalid_stations")
	if err != nil {
		return nil, err
	}

	last := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_last_run_timestamp_seconds",
		Help: "Unix time of the latest completed audit.",
	})
	last, err = registerGauge(reg, last, "audit_last_run_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &AuditCollector{
		gatherer:        gatherer,
		RunDuration:     duration,
		RunsTotal:       runs,
		InvalidStations: invalid,
		LastRun:         last,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *AuditCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveRun records a completed audit run.
func (c *AuditCollector) ObserveRun(d time.Duration, invalid int, at time.Time) {
	if c == nil {
		return
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(d.Seconds())
	}
	if c.RunsTotal != nil {
		c.RunsTotal.Inc()
	}
	if c.InvalidStations != nil {
		c.InvalidStations.Set(float64(invalid))
	}
	if c.LastRun != nil {
		c.LastRun.Set(float64(at.Unix()))
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
