package system

import (
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// CleanupSystem flushes deferred unregistrations at tick end.
// Phase 8 (Cleanup).
type CleanupSystem struct {
	reg *tempo.Registry
	bus *event.Bus
}

func NewCleanupSystem(reg *tempo.Registry, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{reg: reg, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, id := range s.reg.FlushRemovals() {
		event.Emit(s.bus, event.EntityUnregistered{ID: id})
	}
}
