// Package dashboard is a terminal client for the engine console. It polls
// status, shows engine notices, and maps keys to console commands.
package dashboard

import (
	"regexp"
	"strconv"
	"strings"
)

const maxNotices = 8

var percentRe = regexp.MustCompile(`\(([\d.,]+)%\)`)

// Model accumulates console output into what the view draws.
// Not safe for concurrent use.
type Model struct {
	Status  []string // last complete status block
	Notices []string // newest last
	Reply   string   // last plain command reply
	Energy  float64  // 0..1, from the status energy line
	Closed  bool

	pending []string
}

// statusKeys are the leading words of status lines. "tick" opens a block.
var statusKeys = map[string]bool{
	"scale": true, "energy": true, "rewinding": true, "timeline": true, "entities": true,
}

// Feed consumes one console line.
func (m *Model) Feed(line string) {
	switch {
	case strings.HasPrefix(line, "* "):
		m.Notices = append(m.Notices, strings.TrimPrefix(line, "* "))
		if len(m.Notices) > maxNotices {
			m.Notices = m.Notices[len(m.Notices)-maxNotices:]
		}
		return
	case strings.HasPrefix(line, "tick "):
		m.flush()
		m.pending = append(m.pending, line)
		return
	}

	word, _, _ := strings.Cut(line, " ")
	if m.pending != nil && statusKeys[word] {
		m.pending = append(m.pending, line)
		if word == "energy" {
			m.Energy = parsePercent(line)
		}
		if word == "entities" {
			// last line of a status block
			m.flush()
		}
		return
	}
	m.flush()
	m.Reply = line
}

func (m *Model) flush() {
	if m.pending == nil {
		return
	}
	m.Status = m.pending
	m.pending = nil
}

func parsePercent(line string) float64 {
	sm := percentRe.FindStringSubmatch(line)
	if sm == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(sm[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v / 100
}
