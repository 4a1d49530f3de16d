package system

import (
	"testing"
	"time"
)

type traceSystem struct {
	phase Phase
	name  string
	trace *[]string
}

func (s traceSystem) Phase() Phase { return s.phase }

func (s traceSystem) Update(time.Duration) { *s.trace = append(*s.trace, s.name) }

func TestRunnerTicksInPhaseOrder(t *testing.T) {
	var trace []string
	r := NewRunner()
	r.Register(traceSystem{PhaseRewind, "rewind", &trace})
	r.Register(traceSystem{PhaseClock, "clock", &trace})
	r.Register(traceSystem{PhaseRecord, "record-a", &trace})
	r.Register(traceSystem{PhaseZone, "zone", &trace})
	r.Register(traceSystem{PhaseRecord, "record-b", &trace})
	r.Register(traceSystem{PhaseScale, "scale", &trace})

	r.Tick(time.Second)

	want := []string{"clock", "zone", "scale", "record-a", "record-b", "rewind"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestRunnerTickPhase(t *testing.T) {
	var trace []string
	r := NewRunner()
	r.Register(traceSystem{PhaseClock, "clock", &trace})
	r.Register(traceSystem{PhaseInput, "input", &trace})

	r.TickPhase(PhaseInput, 0)

	if len(trace) != 1 || trace[0] != "input" {
		t.Fatalf("trace = %v, want [input]", trace)
	}
}
