package system

import (
	"time"

	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/tempo"
)

// ScaleSystem pushes each entity's effective scale to its host object.
// Phase 3 (Scale). Idle while a rewind drives entity state.
type ScaleSystem struct {
	reg    *tempo.Registry
	zones  *tempo.Zones
	clock  *tempo.Clock
	rewind *tempo.Rewinder
}

func NewScaleSystem(reg *tempo.Registry, zones *tempo.Zones, clock *tempo.Clock, rewind *tempo.Rewinder) *ScaleSystem {
	return &ScaleSystem{reg: reg, zones: zones, clock: clock, rewind: rewind}
}

func (s *ScaleSystem) Phase() coresys.Phase { return coresys.PhaseScale }

func (s *ScaleSystem) Update(_ time.Duration) {
	if s.rewind.Active() {
		return
	}
	ambient := s.clock.Scale()
	s.reg.Each(func(e *tempo.TrackedEntity) {
		if s.zones.InBubble(e.ID) {
			s.reg.ApplyScale(e.ID, s.zones.EffectiveScaleFor(e.ID, ambient, e.CustomScale))
			return
		}
		s.reg.ApplyEffectiveScale(e.ID, ambient)
	})
}
