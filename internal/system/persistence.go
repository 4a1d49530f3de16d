package system

import (
	"context"
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/persist"
	"github.com/timeweave/engine/internal/tempo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/timeweave/engine/internal/system"

// TimelineStore is the save half of persist.TimelineRepo.
type TimelineStore interface {
	SaveTimeline(ctx context.Context, session string, clock tempo.ClockState, snaps []*tempo.TimelineSnapshot, nameOf persist.NameOf) error
}

// JournalStore is the write half of persist.JournalRepo.
type JournalStore interface {
	WriteBatch(ctx context.Context, session string, entries []persist.JournalEntry) error
}

// PersistenceSystem periodically saves the session's clock and timeline,
// and flushes the event journal. Phase 7 (Persist).
type PersistenceSystem struct {
	clock     *tempo.Clock
	rec       *tempo.Recorder
	timelines TimelineStore
	journal   JournalStore
	nameOf    persist.NameOf
	session   string
	log       *zap.Logger
	pending   []persist.JournalEntry
	tickCount int
	interval  int // auto-save every N ticks
}

func NewPersistenceSystem(clock *tempo.Clock, rec *tempo.Recorder, bus *event.Bus, timelines TimelineStore, journal JournalStore, nameOf persist.NameOf, session string, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	s := &PersistenceSystem{
		clock:     clock,
		rec:       rec,
		timelines: timelines,
		journal:   journal,
		nameOf:    nameOf,
		session:   session,
		log:       log,
		interval:  intervalTicks,
	}
	s.subscribe(bus)
	return s
}

func (s *PersistenceSystem) subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.RewindStarted) {
		s.note("rewind_start", e.Anchor, map[string]any{"duration": e.Duration})
	})
	event.Subscribe(bus, func(e event.RewindEnded) {
		s.note("rewind_end", e.RestoredTo, map[string]any{"reason": e.Reason.String()})
	})
	event.Subscribe(bus, func(e event.EnergyDepleted) {
		s.note("energy_depleted", e.At, nil)
	})
	event.Subscribe(bus, func(e event.BubbleCreated) {
		s.note("bubble_created", s.clock.Elapsed(), map[string]any{
			"bubble": uint64(e.ID), "radius": e.Radius, "scale": e.Scale,
		})
	})
	event.Subscribe(bus, func(e event.BubbleExpired) {
		s.note("bubble_expired", s.clock.Elapsed(), map[string]any{"bubble": uint64(e.ID)})
	})
	event.Subscribe(bus, func(e event.BubbleRemoved) {
		s.note("bubble_removed", s.clock.Elapsed(), map[string]any{"bubble": uint64(e.ID)})
	})
}

func (s *PersistenceSystem) note(kind string, at float64, detail map[string]any) {
	s.pending = append(s.pending, persist.JournalEntry{Kind: kind, SimTime: at, Detail: detail})
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Save()
}

// Save persists the timeline and journal immediately.
// Called for graceful shutdown to ensure no data is lost.
func (s *PersistenceSystem) Save() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snaps := s.rec.Snapshots()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "timeline.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("session", s.session),
		attribute.Int("snapshots", len(snaps)),
		attribute.Int("journal_entries", len(s.pending)),
	)

	if err := s.timelines.SaveTimeline(ctx, s.session, s.clock.State(), snaps, s.nameOf); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "timeline save failed")
		s.log.Error("timeline save failed", zap.String("session", s.session), zap.Error(err))
	} else {
		s.log.Debug("timeline saved", zap.String("session", s.session), zap.Int("snapshots", len(snaps)))
	}

	if s.journal == nil || len(s.pending) == 0 {
		return
	}
	if err := s.journal.WriteBatch(ctx, s.session, s.pending); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal flush failed")
		// Keep the entries for the next save.
		s.log.Error("journal flush failed", zap.Int("entries", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}

// Pending reports journal entries not yet written.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }
