package tempo

import "go.uber.org/zap"

// RewindState is the rewind controller's mode.
type RewindState int

const (
	RewindIdle RewindState = iota
	RewindActive
)

func (s RewindState) String() string {
	if s == RewindActive {
		return "rewinding"
	}
	return "idle"
}

// RewindReason says why a rewind ended.
type RewindReason int

const (
	RewindExpired RewindReason = iota
	RewindStopped
	RewindTimelineEmpty
)

func (r RewindReason) String() string {
	switch r {
	case RewindExpired:
		return "expired"
	case RewindStopped:
		return "stopped"
	case RewindTimelineEmpty:
		return "timeline-empty"
	default:
		return "unknown"
	}
}

// RewindEnd describes a finished rewind.
type RewindEnd struct {
	Reason     RewindReason
	RestoredTo float64 // timestamp of the last snapshot written, or the anchor
}

// Rewinder plays history back over the live registry for a bounded time,
// walking from the start instant back by maxDuration at real-time speed.
type Rewinder struct {
	state       RewindState
	cost        float64
	maxDuration float64
	elapsed     float64
	anchor      float64
	restoredTo  float64
	restored    bool
	clock       *Clock
	rec         *Recorder
	log         *zap.Logger
}

func NewRewinder(cost float64, log *zap.Logger) *Rewinder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewinder{cost: cost, log: log}
}

// Start begins a rewind anchored at now. It needs a non-empty timeline and
// enough energy; the whole cost is charged up front.
func (w *Rewinder) Start(maxDuration float64, clock *Clock, rec *Recorder, now float64) bool {
	if w.state == RewindActive || maxDuration <= 0 || rec.Len() == 0 {
		return false
	}
	if !clock.Spend(w.cost) {
		w.log.Debug("rewind refused: insufficient energy",
			zap.Float64("energy", clock.Energy()), zap.Float64("cost", w.cost))
		return false
	}
	w.state = RewindActive
	w.maxDuration = maxDuration
	w.elapsed = 0
	w.anchor = now
	w.restoredTo = now
	w.restored = false
	w.clock = clock
	w.rec = rec
	w.log.Info("rewind started", zap.Float64("duration", maxDuration), zap.Float64("anchor", now))
	return true
}

// Tick advances playback and restores the snapshot nearest the current
// playback instant. Energy comes back from the snapshot; scale does not.
// Reports the end when the rewind finishes during this tick.
func (w *Rewinder) Tick(delta float64, reg *Registry, rec *Recorder) (RewindEnd, bool) {
	if w.state != RewindActive {
		return RewindEnd{}, false
	}
	if rec.Len() == 0 {
		return w.finish(RewindTimelineEmpty), true
	}

	w.elapsed += delta
	progress := w.elapsed / w.maxDuration
	if progress > 1 {
		progress = 1
	}
	target := w.anchor - progress*w.maxDuration

	if snap := rec.FindNearest(target); snap != nil {
		rec.Restore(snap, reg)
		w.clock.RestoreEnergy(snap.Energy)
		w.restoredTo = snap.Timestamp
		w.restored = true
	}

	if w.elapsed >= w.maxDuration {
		return w.finish(RewindExpired), true
	}
	return RewindEnd{}, false
}

// Stop ends an active rewind early, exactly as if it had expired.
func (w *Rewinder) Stop() (RewindEnd, bool) {
	if w.state != RewindActive {
		return RewindEnd{}, false
	}
	return w.finish(RewindStopped), true
}

func (w *Rewinder) finish(reason RewindReason) RewindEnd {
	if w.restored {
		// the rewound-away future is no longer history
		w.rec.TruncateAfter(w.restoredTo)
	}
	w.state = RewindIdle
	end := RewindEnd{Reason: reason, RestoredTo: w.restoredTo}
	w.clock, w.rec = nil, nil
	w.log.Info("rewind ended", zap.Stringer("reason", reason), zap.Float64("restored_to", end.RestoredTo))
	return end
}

func (w *Rewinder) Active() bool        { return w.state == RewindActive }
func (w *Rewinder) State() RewindState  { return w.state }
func (w *Rewinder) Cost() float64       { return w.cost }
func (w *Rewinder) MaxDuration() float64 { return w.maxDuration }

// Progress is elapsed over max duration, in [0, 1]; 0 when idle.
func (w *Rewinder) Progress() float64 {
	if w.state != RewindActive || w.maxDuration <= 0 {
		return 0
	}
	p := w.elapsed / w.maxDuration
	if p > 1 {
		p = 1
	}
	return p
}
