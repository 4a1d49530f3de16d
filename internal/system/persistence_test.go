package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/persist"
	"github.com/timeweave/engine/internal/tempo"
	"go.uber.org/zap"
)

type fakeTimelines struct {
	saves    int
	session  string
	lastSnap int
}

func (f *fakeTimelines) SaveTimeline(_ context.Context, session string, _ tempo.ClockState, snaps []*tempo.TimelineSnapshot, _ persist.NameOf) error {
	f.saves++
	f.session = session
	f.lastSnap = len(snaps)
	return nil
}

type fakeJournal struct {
	fail    bool
	written []persist.JournalEntry
}

func (f *fakeJournal) WriteBatch(_ context.Context, _ string, entries []persist.JournalEntry) error {
	if f.fail {
		return errors.New("db down")
	}
	f.written = append(f.written, entries...)
	return nil
}

func newPersistFixture(t *testing.T, interval int) (*PersistenceSystem, *event.Bus, *fakeTimelines, *fakeJournal) {
	t.Helper()
	clock := tempo.NewClock(tempo.DefaultClockConfig(), zap.NewNop())
	rec := tempo.NewRecorder(0.1, 10, zap.NewNop())
	bus := event.NewBus()
	tl := &fakeTimelines{}
	j := &fakeJournal{}
	names := func(tempo.EntityID) (string, bool) { return "", false }
	s := NewPersistenceSystem(clock, rec, bus, tl, j, names, "test", zap.NewNop(), interval)
	return s, bus, tl, j
}

func deliver(bus *event.Bus) {
	bus.SwapBuffers()
	bus.DispatchAll()
}

func TestPersistenceSavesEveryInterval(t *testing.T) {
	s, _, tl, _ := newPersistFixture(t, 3)
	for i := 0; i < 7; i++ {
		s.Update(50 * time.Millisecond)
	}
	if tl.saves != 2 {
		t.Fatalf("saves = %d, want 2", tl.saves)
	}
	if tl.session != "test" {
		t.Fatalf("session = %q", tl.session)
	}
}

func TestPersistenceJournalsEvents(t *testing.T) {
	s, bus, _, j := newPersistFixture(t, 1)
	event.Emit(bus, event.RewindStarted{Duration: 2, Anchor: 5})
	event.Emit(bus, event.RewindEnded{Reason: tempo.RewindExpired, RestoredTo: 3})
	event.Emit(bus, event.ScaleChanged{From: 1, To: 0.5}) // not journaled
	deliver(bus)

	if s.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", s.Pending())
	}
	s.Update(50 * time.Millisecond)
	if s.Pending() != 0 || len(j.written) != 2 {
		t.Fatalf("pending=%d written=%d", s.Pending(), len(j.written))
	}
	if j.written[0].Kind != "rewind_start" || j.written[0].SimTime != 5 {
		t.Fatalf("first entry = %+v", j.written[0])
	}
	if j.written[1].Detail["reason"] != "expired" {
		t.Fatalf("second entry = %+v", j.written[1])
	}
}

func TestPersistenceKeepsJournalOnFailure(t *testing.T) {
	s, bus, tl, j := newPersistFixture(t, 1)
	j.fail = true
	event.Emit(bus, event.EnergyDepleted{At: 2})
	deliver(bus)

	s.Save()
	if tl.saves != 1 {
		t.Fatalf("timeline saves = %d, want 1", tl.saves)
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1 after failed flush", s.Pending())
	}

	j.fail = false
	s.Save()
	if s.Pending() != 0 || len(j.written) != 1 {
		t.Fatalf("pending=%d written=%d", s.Pending(), len(j.written))
	}
}
