package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timeweave/engine/internal/net"
	"go.uber.org/zap"
)

// Conn is the part of a console session handlers talk to.
type Conn interface {
	Send(line string)
	State() net.SessionState
	SetState(st net.SessionState)
	CloseAfterFlush()
}

// HandlerFunc is the callback signature for console commands. args excludes
// the command word.
type HandlerFunc func(c Conn, args []string)

type handlerEntry struct {
	fn            HandlerFunc
	usage         string
	allowedStates map[net.SessionState]bool
}

// Registry maps command words to handlers with state-based access control.
type Registry struct {
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a command word to a handler, restricted to the given session states.
func (reg *Registry) Register(name, usage string, states []net.SessionState, fn HandlerFunc) {
	allowed := make(map[net.SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[strings.ToLower(name)] = &handlerEntry{
		fn:            fn,
		usage:         usage,
		allowedStates: allowed,
	}
}

// Dispatch splits the line, validates the session state, and calls the
// handler. Unknown commands and disallowed states are answered on c.
func (reg *Registry) Dispatch(c Conn, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	name := strings.ToLower(parts[0])
	state := c.State()
	reg.log.Debug("console command",
		zap.String("cmd", name),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[name]
	if !ok {
		c.Send(fmt.Sprintf("unknown command %q, try help", name))
		return nil
	}
	if !entry.allowedStates[state] {
		c.Send("not allowed before auth")
		return fmt.Errorf("command %s not allowed in state %s", name, state)
	}
	return reg.safeCall(entry.fn, c, parts[1:], name)
}

// Usage lists the registered commands allowed in state, sorted.
func (reg *Registry) Usage(state net.SessionState) []string {
	var out []string
	for _, e := range reg.handlers {
		if e.allowedStates[state] {
			out = append(out, e.usage)
		}
	}
	sort.Strings(out)
	return out
}

// safeCall executes a handler with panic recovery so a single bad command
// cannot crash the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, c Conn, args []string, name string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("console handler panic recovered",
				zap.String("cmd", name),
				zap.Any("panic", rec),
			)
			c.Send("internal error")
			err = fmt.Errorf("handler panic for command %s: %v", name, rec)
		}
	}()
	fn(c, args)
	return nil
}
