package dashboard

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// Run drives the dashboard until the user quits. It polls status every
// poll interval and redraws on every console line, key, or resize.
// The caller owns screen and client.
func Run(screen tcell.Screen, client *Client, addr string, poll time.Duration) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	m := &Model{}
	lines := client.Lines()
	if err := client.Send("status"); err != nil {
		return err
	}
	Draw(screen, m, addr)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				m.Closed = true
				lines = nil
			} else {
				m.Feed(line)
			}
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				cmd, stop := KeyCommand(ev)
				if stop {
					return nil
				}
				if cmd != "" && !m.Closed {
					if err := client.Send(cmd); err != nil {
						m.Closed = true
					}
				}
			}
		case <-ticker.C:
			if !m.Closed {
				if err := client.Send("status"); err != nil {
					m.Closed = true
				}
			}
			continue
		}
		Draw(screen, m, addr)
	}
}
