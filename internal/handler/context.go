package handler

import (
	"context"

	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/engine"
	"github.com/timeweave/engine/internal/net"
	"github.com/timeweave/engine/internal/persist"
	"github.com/timeweave/engine/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// JournalReader is the read half of persist.JournalRepo.
type JournalReader interface {
	Recent(ctx context.Context, session string, limit int) ([]persist.JournalEntry, error)
}

// Deps holds shared dependencies injected into all console handlers.
type Deps struct {
	Engine  *engine.Engine
	World   *world.State // optional
	Journal JournalReader
	Config  *config.Config
	Log     *zap.Logger

	printer *message.Printer
}

// NewPrinter returns a message printer for a BCP 47 tag, falling back to
// English when the tag does not parse.
func NewPrinter(tag string) *message.Printer {
	t, err := language.Parse(tag)
	if err != nil {
		t = language.English
	}
	return message.NewPrinter(t)
}

// RegisterAll registers all console commands into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	deps.printer = NewPrinter(deps.Config.Console.Language)

	always := []net.SessionState{net.StateAwaitAuth, net.StateReady}
	ready := []net.SessionState{net.StateReady}

	reg.Register("auth", "auth <password>", []net.SessionState{net.StateAwaitAuth},
		func(c Conn, args []string) { HandleAuth(c, args, deps) })
	reg.Register("help", "help", always,
		func(c Conn, _ []string) { HandleHelp(c, reg) })
	reg.Register("quit", "quit", always,
		func(c Conn, _ []string) { HandleQuit(c) })

	reg.Register("status", "status", ready,
		func(c Conn, _ []string) { HandleStatus(c, deps) })
	reg.Register("slow", "slow <factor>", ready,
		func(c Conn, args []string) { HandleSlow(c, args, deps) })
	reg.Register("speed", "speed <factor>", ready,
		func(c Conn, args []string) { HandleSpeed(c, args, deps) })
	reg.Register("stop", "stop", ready,
		func(c Conn, _ []string) { HandleStop(c, deps) })
	reg.Register("normal", "normal", ready,
		func(c Conn, _ []string) { HandleNormal(c, deps) })
	reg.Register("rewind", "rewind [seconds]", ready,
		func(c Conn, args []string) { HandleRewind(c, args, deps) })
	reg.Register("halt", "halt", ready,
		func(c Conn, _ []string) { HandleHalt(c, deps) })
	reg.Register("bubble", "bubble <x> <y> <z> <radius> <scale> [duration]", ready,
		func(c Conn, args []string) { HandleBubble(c, args, deps) })
	reg.Register("unbubble", "unbubble <id>", ready,
		func(c Conn, args []string) { HandleUnbubble(c, args, deps) })
	reg.Register("bubbles", "bubbles", ready,
		func(c Conn, _ []string) { HandleBubbles(c, deps) })
	reg.Register("bodies", "bodies", ready,
		func(c Conn, _ []string) { HandleBodies(c, deps) })
	reg.Register("journal", "journal [n]", ready,
		func(c Conn, args []string) { HandleJournal(c, args, deps) })
}

// Console adapts the registry to the input system, which works on concrete
// sessions.
type Console struct {
	reg  *Registry
	deps *Deps
}

func NewConsole(reg *Registry, deps *Deps) *Console {
	return &Console{reg: reg, deps: deps}
}

func (c *Console) Dispatch(sess *net.Session, line string) error {
	return c.reg.Dispatch(sess, line)
}

// Greet sends the banner to a newly connected session.
func (c *Console) Greet(sess *net.Session) {
	greet(sess, c.deps)
}

func greet(c Conn, deps *Deps) {
	c.Send(deps.printer.Sprintf("%s time console", deps.Config.Engine.Name))
	if c.State() == net.StateAwaitAuth {
		c.Send("auth required")
		return
	}
	c.Send("ready, try help")
}
