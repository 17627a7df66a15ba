package core

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/station-placer/model"
)

// SafeSlot is a radial interval that no planet zone overlaps at the time it
// was computed.
type SafeSlot struct {
	Min   float64
	Max   float64
	Label string
}

// Width returns Max-Min.
func (s SafeSlot) Width() float64 { return s.Max - s.Min }

// Mid returns the slot's midpoint radius.
func (s SafeSlot) Mid() float64 { return (s.Min + s.Max) / 2 }

// Slot labels. Only descriptive; nothing branches on them.
const (
	SlotLabelOpenSystem  = "open system"
	SlotLabelInnerSystem = "inner system"
	SlotLabelOuterSystem = "outer system"
)

// FindSafeSlots partitions the radial axis into open intervals between planet
// zones, in ascending radial order.
//
// With no planets the whole system is one slot. Otherwise an inner slot is
// emitted when the gap between the star's clearance and the first zone is at
// least MinSlotWidth (it ends at the zone's inner edge), a between slot for every adjacent zone pair whose gap
// is at least MinSlotWidth (trimmed by SlotMargin on both sides), and an
// outer slot beyond the last zone, which is always present.
func FindSafeSlots(planets []model.Planet, cfg Config) []SafeSlot {
	innerStart := cfg.StationToSun + cfg.InnerClearance
	if len(planets) == 0 {
		return []SafeSlot{{Min: innerStart, Max: cfg.OpenSystemOuter, Label: SlotLabelOpenSystem}}
	}

	zones := ComputeZones(planets, cfg)
	// Zones can overlap or nest when a wide moon system swallows a
	// neighbour. Sweeping by inner edge while tracking the furthest outer
	// edge seen keeps every slot clear of every zone; for disjoint zones the
	// order is the same as by center.
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].InnerEdge < zones[j].InnerEdge
	})
	slots := make([]SafeSlot, 0, len(zones)+1)

	first := zones[0]
	if first.InnerEdge-innerStart >= cfg.MinSlotWidth {
		slots = append(slots, SafeSlot{
			Min:   innerStart,
			Max:   first.InnerEdge,
			Label: SlotLabelInnerSystem,
		})
	}

	outer, outerName := first.OuterEdge, first.Name
	for _, z := range zones[1:] {
		if z.InnerEdge-outer >= cfg.MinSlotWidth {
			slots = append(slots, SafeSlot{
				Min:   outer + cfg.SlotMargin,
				Max:   z.InnerEdge - cfg.SlotMargin,
				Label: fmt.Sprintf("between %s and %s", outerName, z.Name),
			})
		}
		if z.OuterEdge > outer {
			outer, outerName = z.OuterEdge, z.Name
		}
	}

	slots = append(slots, SafeSlot{
		Min:   outer + cfg.OuterSlotGap,
		Max:   outer + cfg.OuterSlotExtent,
		Label: SlotLabelOuterSystem,
	})
	return slots
}
