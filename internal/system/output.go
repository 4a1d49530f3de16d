package system

import (
	"time"

	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/net"
)

// OutputSystem flushes lines queued during the tick, including event
// notices delivered by the dispatch phase. Register it after the engine's
// dispatch system. Phase 9 (Dispatch).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.Each(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
