package placement

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/logging"
	"github.com/signalsfoundry/station-placer/internal/observability"
	"github.com/signalsfoundry/station-placer/model"
)

// InvalidCount sums the findings across reports.
func InvalidCount(reports []Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Invalid)
	}
	return n
}

// Audit re-validates every stored station of one system against the bodies
// and the other stations.
func (s *Service) Audit(ctx context.Context, systemID string) (rep Report, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "placement.Audit", systemID)
	defer func() {
		observability.EndSpan(span, err)
		s.observeOperation("audit", start)
	}()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return Report{}, err
	}
	rep = s.auditSystem(ctx, sys)
	span.SetAttributes(attribute.Int("invalid", len(rep.Invalid)))
	return rep, nil
}

// AuditAll audits every stored system. Systems are audited in parallel; the
// reports are ordered by system ID.
func (s *Service) AuditAll(ctx context.Context) (reports []Report, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "placement.AuditAll", "")
	defer func() {
		observability.EndSpan(span, err)
		s.observeOperation("audit_all", start)
	}()

	systems := s.store.ListSystems()
	reports = make([]Report, len(systems))

	g, gctx := errgroup.WithContext(ctx)
	for i, sys := range systems {
		i, sys := i, sys
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = s.auditSystem(gctx, sys)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("systems", len(reports)),
		attribute.Int("invalid", InvalidCount(reports)),
	)
	return reports, nil
}

func (s *Service) auditSystem(ctx context.Context, sys model.StarSystem) Report {
	rep := Report{SystemID: sys.ID, Checked: len(sys.Stations)}
	for _, st := range sys.Stations {
		others := core.ExcludeStation(sys.Stations, st.ID)
		v := core.ValidatePosition(core.VecOf(st.Position), sys.Planets, others, s.cfg)
		s.observeValidation(v)
		if v.Valid {
			continue
		}
		rep.Invalid = append(rep.Invalid, Finding{Station: st, Validation: v})
		s.log.Warn(ctx, "stored station violates clearance",
			logging.String("system_id", sys.ID),
			logging.String("station_id", st.ID),
			logging.String("station", st.Name),
			logging.String("reason", v.Reason),
		)
	}
	return rep
}
