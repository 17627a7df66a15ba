// Package audit re-validates stored stations on a fixed interval.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/placement"
)

// Runner audits every stored system. *placement.Service implements it.
type Runner interface {
	AuditAll(ctx context.Context) ([]placement.Report, error)
}

// Recorder receives one measurement per completed run.
// *observability.AuditCollector implements it.
type Recorder interface {
	ObserveRun(d time.Duration, invalid int, at time.Time)
}

// Run is the outcome of one audit pass.
type Run struct {
	At       time.Time
	Duration time.Duration
	Reports  []placement.Report
	Invalid  int
	Err      error
}

// Auditor drives periodic audits and notifies registered listeners after
// each one.
type Auditor struct {
	mu       sync.RWMutex
	Interval time.Duration

	runner  Runner
	log     logging.Logger
	metrics Recorder
	now     func() time.Time

	last      Run
	runs      int
	listeners []func(Run)
}

// Option customises an Auditor.
type Option func(*Auditor)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(a *Auditor) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Auditor) { a.metrics = r }
}

// NewAuditor constructs an auditor that runs every interval once started.
func NewAuditor(runner Runner, interval time.Duration, opts ...Option) *Auditor {
	a := &Auditor{
		Interval: interval,
		runner:   runner,
		log:      logging.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// AddListener registers a callback invoked after every run.
func (a *Auditor) AddListener(fn func(Run)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Last returns the most recent run and whether any run has completed.
func (a *Auditor) Last() (Run, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last, a.runs > 0
}

// RunOnce performs a single audit pass and notifies listeners.
func (a *Auditor) RunOnce(ctx context.Context) Run {
	start := a.now()
	reports, err := a.runner.AuditAll(ctx)
	run := Run{
		At:       start,
		Duration: a.now().Sub(start),
		Reports:  reports,
		Invalid:  placement.InvalidCount(reports),
		Err:      err,
	}

	if err != nil {
		a.log.Warn(ctx, "audit run failed", logging.Err(err))
	} else {
		if a.metrics != nil {
			a.metrics.ObserveRun(run.Duration, run.Invalid, run.At)
		}
		a.log.Info(ctx, "audit run completed",
			logging.Int("systems", len(reports)),
			logging.Int("invalid_stations", run.Invalid),
			logging.Any("duration", run.Duration),
		)
	}

	a.mu.Lock()
	a.last = run
	a.runs++
	listeners := make([]func(Run), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(run)
	}
	return run
}

// Start runs an audit every Interval until ctx is cancelled. It returns a
// channel that is closed when the loop exits. A non-positive Interval runs a
// single audit and exits.
func (a *Auditor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		if a.Interval <= 0 {
			a.RunOnce(ctx)
			return
		}

		ticker := time.NewTicker(a.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.RunOnce(ctx)
			}
		}
	}()
	return done
}
