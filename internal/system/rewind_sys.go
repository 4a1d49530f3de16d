package system

import (
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// RewindSystem plays history back while a rewind is active. Phase 5 (Rewind).
type RewindSystem struct {
	rewind *tempo.Rewinder
	reg    *tempo.Registry
	rec    *tempo.Recorder
	bus    *event.Bus
}

func NewRewindSystem(rewind *tempo.Rewinder, reg *tempo.Registry, rec *tempo.Recorder, bus *event.Bus) *RewindSystem {
	return &RewindSystem{rewind: rewind, reg: reg, rec: rec, bus: bus}
}

func (s *RewindSystem) Phase() coresys.Phase { return coresys.PhaseRewind }

func (s *RewindSystem) Update(dt time.Duration) {
	if end, ok := s.rewind.Tick(dt.Seconds(), s.reg, s.rec); ok {
		event.Emit(s.bus, event.RewindEnded{Reason: end.Reason, RestoredTo: end.RestoredTo})
	}
}
