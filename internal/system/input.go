package system

import (
	"time"

	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/net"
	"go.uber.org/zap"
)

// CommandDispatcher executes console command lines.
type CommandDispatcher interface {
	Dispatch(sess *net.Session, line string) error
	Greet(sess *net.Session)
}

// SessionSource is the accept side of net.Server.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
}

// InputSystem drains command queues from all console sessions and
// dispatches them. Phase 0 (Input).
type InputSystem struct {
	server     SessionSource
	store      *net.SessionStore
	dispatcher CommandDispatcher
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(server SessionSource, store *net.SessionStore, dispatcher CommandDispatcher, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick < 1 {
		maxPerTick = 1
	}
	return &InputSystem{
		server:     server,
		store:      store,
		dispatcher: dispatcher,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.store.Add(sess)
			s.dispatcher.Greet(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.server.DeadSessions():
			if s.store.Remove(id) != nil {
				s.log.Info("console disconnected", zap.Uint64("session", id))
			}
		default:
			goto doneDead
		}
	}
doneDead:

	// Drain commands from each session (up to maxPerTick per session)
	s.store.Each(func(sess *net.Session) {
		if sess.IsClosed() {
			s.store.Remove(sess.ID)
			return
		}
		if sess.State() == net.StateClosing {
			return
		}
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case line := <-sess.InQueue:
				if err := s.dispatcher.Dispatch(sess, line); err != nil {
					s.log.Debug("command dispatch error",
						zap.Uint64("session", sess.ID),
						zap.Error(err),
					)
				}
			default:
				return
			}
		}
	})

	// Early flush so replies start writing while later phases run.
	// OutputSystem flushes whatever the remaining phases add.
	s.store.Each(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
