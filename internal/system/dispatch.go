package system

import (
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during this tick.
// Phase 9 (Dispatch), always last.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
