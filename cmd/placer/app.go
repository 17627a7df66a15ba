package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/observability"
	"github.com/signalsfoundry/station-placer/internal/placement"
	"github.com/signalsfoundry/station-placer/kb"
	"github.com/signalsfoundry/station-placer/model"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	systems    []string
	systemID   string
	configPath string
	seed       int64
}

// app is the wiring built once per invocation.
type app struct {
	log      logging.Logger
	cfg      core.Config
	store    *kb.Store
	svc      *placement.Service
	metrics  *observability.PlacementCollector
	audits   *observability.AuditCollector
	shutdown func(context.Context) error

	defaultSystem string
}

// initTracing is swapped in tests to observe the tracer lifecycle.
var initTracing = observability.InitTracing

func newApp(ctx context.Context, flags *globalFlags) (_ *app, err error) {
	log := logging.NewFromEnv()

	cfg := core.DefaultConfig()
	if flags.configPath != "" {
		f, err := os.Open(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		cfg, err = core.LoadConfig(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		log.Debug(ctx, "loaded placement config", logging.String("path", flags.configPath))
	}

	shutdown, err := initTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err != nil {
			observability.ShutdownWithTimeout(ctx, shutdown, log)
		}
	}()

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewPlacementCollector(registry)
	if err != nil {
		return nil, err
	}
	audits, err := observability.NewAuditCollector(registry)
	if err != nil {
		return nil, err
	}

	store := kb.NewStore()
	a := &app{
		log:      log,
		cfg:      cfg,
		store:    store,
		metrics:  metrics,
		audits:   audits,
		shutdown: shutdown,
	}
	for _, path := range flags.systems {
		sys, err := loadSystemFile(path)
		if err != nil {
			return nil, err
		}
		if err := store.AddSystem(sys); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if a.defaultSystem == "" {
			a.defaultSystem = sys.ID
		}
		log.Info(ctx, "loaded star system",
			logging.String("path", path),
			logging.String("system_id", sys.ID),
			logging.Int("planets", len(sys.Planets)),
			logging.Int("stations", len(sys.Stations)),
		)
	}
	if flags.systemID != "" {
		a.defaultSystem = flags.systemID
	}

	opts := []placement.Option{
		placement.WithLogger(log),
		placement.WithMetrics(metrics),
		placement.WithConfig(cfg),
	}
	if flags.seed != 0 {
		opts = append(opts, placement.WithSeed(flags.seed))
	}
	a.svc = placement.NewService(store, opts...)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.svc != nil {
		a.svc.Close()
	}
	observability.ShutdownWithTimeout(ctx, a.shutdown, a.log)
}

// targetSystem returns the system a single-system command operates on.
func (a *app) targetSystem() (string, error) {
	if a.defaultSystem == "" {
		return "", fmt.Errorf("no star system loaded; pass --system")
	}
	return a.defaultSystem, nil
}

// loadSystemFile decodes a system file. A missing system ID defaults to the
// file name without extension; stations without IDs get fresh UUIDs.
func loadSystemFile(path string) (model.StarSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.StarSystem{}, fmt.Errorf("open system: %w", err)
	}
	defer f.Close()

	sys, err := core.LoadStarSystem(f, core.FormatFromPath(path))
	if err != nil {
		return model.StarSystem{}, fmt.Errorf("%s: %w", path, err)
	}
	if sys.ID == "" {
		sys.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i := range sys.Stations {
		if sys.Stations[i].ID == "" {
			sys.Stations[i].ID = uuid.NewString()
		}
	}
	return sys, nil
}

// appFrom fetches the app built by the root command's pre-run hook.
func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
		return a
	}
	return nil
}

type appKey struct{}
