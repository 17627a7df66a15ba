package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/audit"
	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/placement"
	"github.com/signalsfoundry/station-placer/model"
)

// errPositionInvalid makes validate exit non-zero after printing its verdict.
var errPositionInvalid = errors.New("position is not clear")

// errWatchInterval rejects --watch without a positive --interval.
var errWatchInterval = errors.New("--watch needs a positive --interval")

func newSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List planet zones and the safe slots between them",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := a.targetSystem()
			if err != nil {
				return err
			}
			listing, err := a.svc.Slots(id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), toSlotsJSON(listing))
		}),
	}
}

// placementFlags are shared by place and place-many.
type placementFlags struct {
	strategy    string
	prefer      string
	angle       float64
	maxAttempts int
	phiRange    float64
	dryRun      bool
}

func (f *placementFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.strategy, "strategy", core.StrategySlot, "placement strategy: slot or sampling")
	fs.StringVar(&f.prefer, "prefer", string(core.PreferOuter), "slot preference: outer, inner or largest")
	fs.Float64Var(&f.angle, "angle", 0, "fixed azimuth in degrees (slot strategy); random when unset")
	fs.IntVar(&f.maxAttempts, "max-attempts", core.DefaultMaxAttempts, "sampling budget per station")
	fs.Float64Var(&f.phiRange, "phi-range", core.DefaultPhiRange, "fraction of the full elevation range to sample")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compute positions without adding them to the system")
}

func (f *placementFlags) request(cmd *cobra.Command) (placement.Request, error) {
	pref := core.SlotPreference(strings.ToLower(f.prefer))
	switch pref {
	case core.PreferOuter, core.PreferInner, core.PreferLargest:
	default:
		return placement.Request{}, fmt.Errorf("unknown slot preference %q", f.prefer)
	}
	opts := core.PlacementOptions{
		PreferredSlot: pref,
		MaxAttempts:   f.maxAttempts,
	}
	phiRange := f.phiRange
	opts.PhiRange = &phiRange
	if cmd.Flags().Changed("angle") {
		angle := f.angle
		opts.FixedAngle = &angle
	}
	return placement.Request{Strategy: f.strategy, Options: opts, DryRun: f.dryRun}, nil
}

func newPlaceCmd() *cobra.Command {
	flags := &placementFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place one new station",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := a.targetSystem()
			if err != nil {
				return err
			}
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			req.Name = name
			res, err := a.svc.Place(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), toStationJSON(res))
		}),
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "station name (default \"Station N\")")
	return cmd
}

func newPlaceManyCmd() *cobra.Command {
	flags := &placementFlags{}
	var count int
	cmd := &cobra.Command{
		Use:   "place-many",
		Short: "Place several stations, each avoiding the ones placed before it",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := a.targetSystem()
			if err != nil {
				return err
			}
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			results, err := a.svc.PlaceMany(cmd.Context(), id, count, req)
			if err != nil {
				return err
			}
			out := make([]stationJSON, 0, len(results))
			for _, r := range results {
				out = append(out, toStationJSON(r))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}),
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&count, "count", 1, "number of stations to place")
	return cmd
}

// positionFlags select either a stored station or explicit coordinates.
type positionFlags struct {
	station string
	x, y, z float64
}

func (f *positionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.station, "station", "", "ID of a stored station")
	fs.Float64Var(&f.x, "x", 0, "x coordinate")
	fs.Float64Var(&f.y, "y", 0, "y coordinate")
	fs.Float64Var(&f.z, "z", 0, "z coordinate")
}

func (f *positionFlags) explicit(cmd *cobra.Command) bool {
	fs := cmd.Flags()
	return fs.Changed("x") || fs.Changed("y") || fs.Changed("z")
}

func (f *positionFlags) position() model.Position {
	return model.Position{X: f.x, Y: f.y, Z: f.z}
}

func newValidateCmd() *cobra.Command {
	flags := &positionFlags{}
	var exclude string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a position or stored station against every clearance rule",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := a.targetSystem()
			if err != nil {
				return err
			}
			var v core.Validation
			switch {
			case flags.station != "":
				v, err = a.svc.ValidateStation(cmd.Context(), id, flags.station)
			case flags.explicit(cmd):
				v, err = a.svc.Validate(cmd.Context(), id, flags.position(), exclude)
			default:
				return fmt.Errorf("validate needs --station or --x/--y/--z")
			}
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), toValidationJSON(id, v)); err != nil {
				return err
			}
			if !v.Valid {
				return fmt.Errorf("%w: %s", errPositionInvalid, v.Reason)
			}
			return nil
		}),
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&exclude, "exclude", "", "station ID to leave out of the check")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	flags := &positionFlags{}
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe the orbit of a stored station or a position",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			var d core.OrbitDescription
			switch {
			case flags.station != "":
				id, err := a.targetSystem()
				if err != nil {
					return err
				}
				if d, err = a.svc.Describe(id, flags.station); err != nil {
					return err
				}
			case flags.explicit(cmd):
				d = core.DescribeOrbit(core.VecOf(flags.position()))
			default:
				return fmt.Errorf("describe needs --station or --x/--y/--z")
			}
			return writeJSON(cmd.OutOrStdout(), toOrbitJSON(d))
		}),
	}
	flags.register(cmd)
	return cmd
}

func newAuditCmd() *cobra.Command {
	var (
		watch       bool
		interval    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-validate every stored station in every loaded system",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, _ []string) error {
			auditor := audit.NewAuditor(a.svc, interval,
				audit.WithLogger(a.log),
				audit.WithRecorder(a.audits),
			)
			if !watch {
				run := auditor.RunOnce(cmd.Context())
				if run.Err != nil {
					return run.Err
				}
				return writeJSON(cmd.OutOrStdout(), toReportsJSON(run.Reports))
			}
			if interval <= 0 {
				return fmt.Errorf("%w: got %s", errWatchInterval, interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			metricsSrv := serveMetrics(ctx, metricsAddr, a, a.log)
			out := cmd.OutOrStdout()
			auditor.AddListener(func(run audit.Run) {
				if run.Err == nil {
					if err := writeJSON(out, toReportsJSON(run.Reports)); err != nil {
						a.log.Warn(ctx, "failed to write audit report", logging.Err(err))
					}
				}
			})

			auditor.RunOnce(ctx)
			<-auditor.Start(ctx)

			if metricsSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(shutdownCtx)
			}
			return nil
		}),
	}
	fs := cmd.Flags()
	fs.BoolVar(&watch, "watch", false, "keep auditing every --interval until interrupted")
	fs.DurationVar(&interval, "interval", time.Minute, "time between audits in --watch mode")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics in --watch mode")
	return cmd
}

func serveMetrics(ctx context.Context, addr string, a *app, log logging.Logger) *http.Server {
	if addr == "" || a.metrics == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
