package main

import (
	"encoding/json"
	"io"

	"github.com/signalsfoundry/station-placer/core"
	"github.com/signalsfoundry/station-placer/internal/placement"
	"github.com/signalsfoundry/station-placer/model"
)

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type orbitJSON struct {
	Radius           float64 `json:"radius"`
	AngleDegrees     float64 `json:"angle_degrees"`
	ElevationDegrees float64 `json:"elevation_degrees"`
	Description      string  `json:"description"`
}

type stationJSON struct {
	SystemID      string       `json:"system_id"`
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Position      positionJSON `json:"position"`
	OrbitalRadius float64      `json:"orbital_radius"`
	Strategy      string       `json:"strategy"`
	Slot          string       `json:"slot,omitempty"`
	Attempts      int          `json:"attempts,omitempty"`
	Fallback      bool         `json:"fallback"`
	Stored        bool         `json:"stored"`
	Orbit         orbitJSON    `json:"orbit"`
}

type zoneJSON struct {
	Name      string  `json:"name"`
	InnerEdge float64 `json:"inner_edge"`
	Center    float64 `json:"center"`
	OuterEdge float64 `json:"outer_edge"`
}

type slotJSON struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Width float64 `json:"width"`
}

type slotsJSON struct {
	SystemID string     `json:"system_id"`
	Zones    []zoneJSON `json:"zones"`
	Slots    []slotJSON `json:"slots"`
}

type validationJSON struct {
	SystemID string  `json:"system_id"`
	Valid    bool    `json:"valid"`
	Reason   string  `json:"reason,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	Body     string  `json:"body,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Limit    float64 `json:"limit,omitempty"`
}

type findingJSON struct {
	StationID string       `json:"station_id"`
	Name      string       `json:"name"`
	Position  positionJSON `json:"position"`
	Reason    string       `json:"reason"`
}

type reportJSON struct {
	SystemID string        `json:"system_id"`
	Checked  int           `json:"checked"`
	Invalid  []findingJSON `json:"invalid"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toPositionJSON(p model.Position) positionJSON {
	return positionJSON{X: p.X, Y: p.Y, Z: p.Z}
}

func toOrbitJSON(d core.OrbitDescription) orbitJSON {
	return orbitJSON{
		Radius:           d.Radius,
		AngleDegrees:     d.AngleDegrees,
		ElevationDegrees: d.ElevationDegrees,
		Description:      d.Description,
	}
}

func toStationJSON(r placement.Result) stationJSON {
	return stationJSON{
		SystemID:      r.SystemID,
		ID:            r.Station.ID,
		Name:          r.Station.Name,
		Position:      toPositionJSON(r.Station.Position),
		OrbitalRadius: r.Placement.OrbitalRadius,
		Strategy:      r.Placement.Strategy,
		Slot:          r.Placement.Slot,
		Attempts:      r.Placement.Attempts,
		Fallback:      r.Placement.Fallback,
		Stored:        r.Stored,
		Orbit:         toOrbitJSON(r.Orbit),
	}
}

func toSlotsJSON(l placement.SlotListing) slotsJSON {
	out := slotsJSON{
		SystemID: l.SystemID,
		Zones:    make([]zoneJSON, 0, len(l.Zones)),
		Slots:    make([]slotJSON, 0, len(l.Slots)),
	}
	for _, z := range l.Zones {
		out.Zones = append(out.Zones, zoneJSON{Name: z.Name, InnerEdge: z.InnerEdge, Center: z.Center, OuterEdge: z.OuterEdge})
	}
	for _, s := range l.Slots {
		out.Slots = append(out.Slots, slotJSON{Label: s.Label, Min: s.Min, Max: s.Max, Width: s.Width()})
	}
	return out
}

func toValidationJSON(systemID string, v core.Validation) validationJSON {
	out := validationJSON{SystemID: systemID, Valid: v.Valid, Reason: v.Reason}
	if v.Collision.Collides() {
		out.Kind = v.Collision.Kind.String()
		out.Body = v.Collision.Body
		out.Distance = v.Collision.Distance
		out.Limit = v.Collision.Limit
	}
	return out
}

func toReportsJSON(reports []placement.Report) []reportJSON {
	out := make([]reportJSON, 0, len(reports))
	for _, r := range reports {
		rj := reportJSON{SystemID: r.SystemID, Checked: r.Checked, Invalid: make([]findingJSON, 0, len(r.Invalid))}
		for _, f := range r.Invalid {
			rj.Invalid = append(rj.Invalid, findingJSON{
				StationID: f.Station.ID,
				Name:      f.Station.Name,
				Position:  toPositionJSON(f.Station.Position),
				Reason:    f.Validation.Reason,
			})
		}
		out = append(out, rj)
	}
	return out
}
