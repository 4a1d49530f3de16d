package dashboard

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Keys maps a rune to the console command it sends.
var Keys = []struct {
	Rune    rune
	Command string
	Label   string
}{
	{'s', "slow 0.5", "slow"},
	{'f', "speed 2", "fast"},
	{'x', "stop", "stop"},
	{'n', "normal", "normal"},
	{'r', "rewind", "rewind"},
	{'h', "halt", "halt"},
}

// KeyCommand returns the command bound to a key event. quit reports q,
// Esc or Ctrl-C.
func KeyCommand(ev *tcell.EventKey) (cmd string, quit bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return "", true
	case tcell.KeyRune:
		r := ev.Rune()
		if r == 'q' {
			return "", true
		}
		for _, k := range Keys {
			if k.Rune == r {
				return k.Command, false
			}
		}
	}
	return "", false
}

var (
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	textStyle   = tcell.StyleDefault
	dimStyle    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	noticeStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	barFull     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	barLow      = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Draw renders the model onto screen and shows it.
func Draw(screen tcell.Screen, m *Model, addr string) {
	screen.Clear()
	w, h := screen.Size()
	y := 0

	put(screen, 0, y, w, "timeweave · "+addr, titleStyle)
	y += 2

	if len(m.Status) == 0 {
		put(screen, 0, y, w, "waiting for status…", dimStyle)
		y++
	}
	for _, l := range m.Status {
		put(screen, 0, y, w, l, textStyle)
		y++
	}
	y++

	y = drawBar(screen, y, w, m.Energy)
	y++

	put(screen, 0, y, w, "notices", dimStyle)
	y++
	for _, n := range m.Notices {
		put(screen, 2, y, w, n, noticeStyle)
		y++
	}
	if m.Reply != "" {
		y++
		put(screen, 0, y, w, "> "+m.Reply, textStyle)
	}

	if m.Closed {
		put(screen, 0, h-2, w, "connection closed", barLow)
	}
	put(screen, 0, h-1, w, helpLine(), dimStyle)
	screen.Show()
}

func drawBar(screen tcell.Screen, y, w int, frac float64) int {
	const label = "energy "
	width := w - len(label) - 8
	if width < 10 {
		width = 10
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	style := barFull
	if frac < 0.25 {
		style = barLow
	}
	put(screen, 0, y, w, label, dimStyle)
	x := len(label)
	for i := 0; i < width && x+i < w; i++ {
		r := '·'
		st := dimStyle
		if i < filled {
			r, st = '█', style
		}
		screen.SetContent(x+i, y, r, nil, st)
	}
	put(screen, x+width+1, y, w, fmt.Sprintf("%3.0f%%", frac*100), textStyle)
	return y + 1
}

func helpLine() string {
	parts := make([]string, 0, len(Keys)+1)
	for _, k := range Keys {
		parts = append(parts, fmt.Sprintf("%c %s", k.Rune, k.Label))
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, "  ")
}

// put writes s at (x, y), clipped to width w.
func put(screen tcell.Screen, x, y, w int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= w {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
