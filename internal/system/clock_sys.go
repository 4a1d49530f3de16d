package system

import (
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// ClockSystem advances the global clock. Phase 1 (Clock).
// Emits ScaleChanged whenever the scale comes to rest on a new value and
// EnergyDepleted when the clock forces time back to normal.
type ClockSystem struct {
	clock   *tempo.Clock
	rewind  *tempo.Rewinder
	bus     *event.Bus
	settled float64
}

func NewClockSystem(clock *tempo.Clock, rewind *tempo.Rewinder, bus *event.Bus) *ClockSystem {
	return &ClockSystem{clock: clock, rewind: rewind, bus: bus, settled: clock.Scale()}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseClock }

func (s *ClockSystem) Update(dt time.Duration) {
	rep := s.clock.Tick(dt.Seconds(), s.rewind.Active())
	if rep.Depleted {
		event.Emit(s.bus, event.EnergyDepleted{At: s.clock.Elapsed()})
	}
	if cur := s.clock.Scale(); cur == s.clock.Target() && cur != s.settled {
		event.Emit(s.bus, event.ScaleChanged{From: s.settled, To: cur})
		s.settled = cur
	}
}
