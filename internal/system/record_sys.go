package system

import (
	"time"

	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// RecordSystem captures and prunes the timeline. Phase 4 (Record).
// Suspended while rewinding so playback never records itself.
type RecordSystem struct {
	rec    *tempo.Recorder
	reg    *tempo.Registry
	clock  *tempo.Clock
	rewind *tempo.Rewinder
}

func NewRecordSystem(rec *tempo.Recorder, reg *tempo.Registry, clock *tempo.Clock, rewind *tempo.Rewinder) *RecordSystem {
	return &RecordSystem{rec: rec, reg: reg, clock: clock, rewind: rewind}
}

func (s *RecordSystem) Phase() coresys.Phase { return coresys.PhaseRecord }

func (s *RecordSystem) Update(dt time.Duration) {
	if s.rewind.Active() {
		return
	}
	s.rec.Tick(dt.Seconds(), s.clock.Elapsed(), s.reg, s.clock.State())
}
