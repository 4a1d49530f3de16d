package system

import (
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// ZoneSystem ages bubbles and recomputes their membership. Phase 2 (Zone).
type ZoneSystem struct {
	zones  *tempo.Zones
	clock  *tempo.Clock
	reg    *tempo.Registry
	rewind *tempo.Rewinder
	lookup tempo.PositionLookup
	bus    *event.Bus
}

// NewZoneSystem wires the zone tick. A nil lookup falls back to each
// entity's Positioned capability. While rewind is active, expiring bubbles
// leave their members frozen.
func NewZoneSystem(zones *tempo.Zones, clock *tempo.Clock, reg *tempo.Registry, rewind *tempo.Rewinder, lookup tempo.PositionLookup, bus *event.Bus) *ZoneSystem {
	return &ZoneSystem{zones: zones, clock: clock, reg: reg, rewind: rewind, lookup: lookup, bus: bus}
}

func (s *ZoneSystem) Phase() coresys.Phase { return coresys.PhaseZone }

func (s *ZoneSystem) Update(dt time.Duration) {
	tick := s.zones.Tick
	if s.rewind != nil && s.rewind.Active() {
		tick = s.zones.TickFrozen
	}
	for _, id := range tick(dt.Seconds(), s.clock.Scale(), s.reg, s.lookup) {
		event.Emit(s.bus, event.BubbleExpired{ID: id})
	}
}
