package handler

import (
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/net"
)

// EachConn visits every live console connection.
type EachConn func(fn func(Conn))

// SubscribeNotices pushes time-control events to every authenticated
// console.
func SubscribeNotices(bus *event.Bus, each EachConn, deps *Deps) {
	p := NewPrinter(deps.Config.Console.Language)
	broadcast := func(line string) {
		each(func(c Conn) {
			if c.State() == net.StateReady {
				c.Send(line)
			}
		})
	}
	event.Subscribe(bus, func(e event.EnergyDepleted) {
		broadcast(p.Sprintf("* energy depleted at %.2fs, time released", e.At))
	})
	event.Subscribe(bus, func(e event.RewindEnded) {
		broadcast(p.Sprintf("* rewind %s, restored to %.2fs", e.Reason, e.RestoredTo))
	})
	event.Subscribe(bus, func(e event.BubbleExpired) {
		broadcast(p.Sprintf("* bubble %d expired", uint64(e.ID)))
	})
	event.Subscribe(bus, func(e event.BubbleRemoved) {
		broadcast(p.Sprintf("* bubble %d removed", uint64(e.ID)))
	})
	event.Subscribe(bus, func(e event.ScaleChanged) {
		broadcast(p.Sprintf("* scale %.2f -> %.2f", e.From, e.To))
	})
}
