package tempo

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// TimelineSnapshot is the whole registry's observed state at one instant.
// Snapshots are never mutated after they enter the timeline.
type TimelineSnapshot struct {
	Timestamp float64                       `json:"ts"`
	Entities  map[EntityID]PropertySnapshot `json:"entities"`
	Scale     float64                       `json:"scale"`
	Energy    float64                       `json:"energy"`
}

// Recorder periodically captures the registry into a time-ordered ring and
// evicts entries older than the retention window.
type Recorder struct {
	interval  float64
	retention float64
	acc       float64
	buf       *ring[*TimelineSnapshot]
	log       *zap.Logger
}

func NewRecorder(interval, retention float64, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{log: log}
	r.Configure(interval, retention)
	return r
}

// Configure sets the capture interval and retention window, both in seconds.
func (r *Recorder) Configure(interval, retention float64) {
	if interval <= 0 {
		interval = 0.1
	}
	if retention < interval {
		retention = interval
	}
	r.interval = interval
	r.retention = retention
	if r.buf == nil || r.buf.Len() == 0 {
		r.buf = newRing[*TimelineSnapshot](int(math.Ceil(retention/interval)) + 2)
	}
}

func (r *Recorder) Interval() float64  { return r.interval }
func (r *Recorder) Retention() float64 { return r.retention }

// Tick accumulates delta and captures once a full interval has passed.
// Pruning runs every tick.
func (r *Recorder) Tick(delta, now float64, reg *Registry, state ClockState) {
	r.acc += delta
	if r.acc >= r.interval {
		r.acc = 0
		r.Capture(now, reg, state)
	}
	r.Prune(now - r.retention)
}

// Capture appends a snapshot at ts. A capture at the newest timestamp
// replaces that entry; an older timestamp is refused.
func (r *Recorder) Capture(ts float64, reg *Registry, state ClockState) (*TimelineSnapshot, bool) {
	if r.buf.Len() > 0 {
		if newest := r.buf.Back(); ts < newest.Timestamp {
			r.log.Warn("capture out of order",
				zap.Float64("ts", ts), zap.Float64("newest", newest.Timestamp))
			return nil, false
		}
	}

	snap := &TimelineSnapshot{
		Timestamp: ts,
		Entities:  make(map[EntityID]PropertySnapshot, reg.Len()),
		Scale:     state.Scale,
		Energy:    state.Energy,
	}
	reg.Each(func(e *TrackedEntity) {
		read := e.Handle.ReadProperties(e.Properties)
		snap.Entities[e.ID] = read.only(e.Properties)
	})

	if r.buf.Len() > 0 && r.buf.Back().Timestamp == ts {
		r.buf.set(r.buf.Len()-1, snap)
	} else {
		r.buf.PushBack(snap)
	}
	return snap, true
}

// Prune evicts snapshots strictly older than cutoff.
func (r *Recorder) Prune(cutoff float64) int {
	n := 0
	for r.buf.Len() > 0 && r.buf.Front().Timestamp < cutoff {
		r.buf.PopFront()
		n++
	}
	return n
}

// FindNearest returns the snapshot closest to target, preferring the older
// one on a tie, or nil when the timeline is empty.
func (r *Recorder) FindNearest(target float64) *TimelineSnapshot {
	n := r.buf.Len()
	if n == 0 {
		return nil
	}
	// first index with ts >= target
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.buf.At(mid).Timestamp < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return r.buf.At(0)
	}
	if lo == n {
		return r.buf.At(n - 1)
	}
	before, after := r.buf.At(lo-1), r.buf.At(lo)
	if target-before.Timestamp <= after.Timestamp-target {
		return before
	}
	return after
}

// TruncateAfter drops every snapshot newer than ts.
func (r *Recorder) TruncateAfter(ts float64) int {
	n := 0
	for r.buf.Len() > 0 && r.buf.Back().Timestamp > ts {
		r.buf.PopBack()
		n++
	}
	return n
}

// Restore writes snap back onto the registry. Entities that are gone are
// skipped. Returns how many entities were written.
func (r *Recorder) Restore(snap *TimelineSnapshot, reg *Registry) int {
	if snap == nil {
		return 0
	}
	n := 0
	for id, props := range snap.Entities {
		e, ok := reg.Get(id)
		if !ok {
			continue
		}
		e.Handle.WriteProperties(props.Clone())
		n++
	}
	return n
}

// Load replaces the timeline. Timestamps must be strictly increasing.
func (r *Recorder) Load(snaps []*TimelineSnapshot) error {
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Timestamp <= snaps[i-1].Timestamp {
			return fmt.Errorf("snapshot %d at %g not after %g", i, snaps[i].Timestamp, snaps[i-1].Timestamp)
		}
	}
	r.buf.Reset()
	for _, s := range snaps {
		r.buf.PushBack(s)
	}
	r.acc = 0
	return nil
}

func (r *Recorder) Len() int { return r.buf.Len() }

// Span is newest minus oldest timestamp, 0 with fewer than two snapshots.
func (r *Recorder) Span() float64 {
	if r.buf.Len() < 2 {
		return 0
	}
	return r.buf.Back().Timestamp - r.buf.Front().Timestamp
}

func (r *Recorder) Oldest() *TimelineSnapshot {
	if r.buf.Len() == 0 {
		return nil
	}
	return r.buf.Front()
}

func (r *Recorder) Newest() *TimelineSnapshot {
	if r.buf.Len() == 0 {
		return nil
	}
	return r.buf.Back()
}

// Snapshots returns the timeline oldest first. The slice is a copy; the
// snapshots are shared and must be treated as read-only.
func (r *Recorder) Snapshots() []*TimelineSnapshot {
	out := make([]*TimelineSnapshot, r.buf.Len())
	for i := range out {
		out[i] = r.buf.At(i)
	}
	return out
}
