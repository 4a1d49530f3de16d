package system

import (
	"time"

	coresys "github.com/timeweave/engine/internal/core/system"
)

// Stepper is a host world advanced once per tick.
type Stepper interface {
	Step(dt float64)
}

// HostSystem advances host objects after time scales and rewinds have been
// applied. Phase 6 (Host).
type HostSystem struct {
	host Stepper
}

func NewHostSystem(host Stepper) *HostSystem {
	return &HostSystem{host: host}
}

func (s *HostSystem) Phase() coresys.Phase { return coresys.PhaseHost }

func (s *HostSystem) Update(dt time.Duration) {
	s.host.Step(dt.Seconds())
}
