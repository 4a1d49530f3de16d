package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput    Phase = iota // 0: drain console command queues
	PhaseClock                 // 1: smooth global scale, charge/regen energy
	PhaseZone                  // 2: age bubbles, recompute membership
	PhaseScale                 // 3: apply effective scale to tracked entities
	PhaseRecord                // 4: capture + prune timeline
	PhaseRewind                // 5: restore entities from history
	PhaseHost                  // 6: step host-owned objects
	PhasePersist               // 7: periodic timeline save
	PhaseCleanup               // 8: flush deferred unregistrations
	PhaseDispatch              // 9: deliver this tick's events, publish status
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseClock:
		return "clock"
	case PhaseZone:
		return "zone"
	case PhaseScale:
		return "scale"
	case PhaseRecord:
		return "record"
	case PhaseRewind:
		return "rewind"
	case PhaseHost:
		return "host"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	case PhaseDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
