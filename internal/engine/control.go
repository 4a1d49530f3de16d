package engine

import (
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/tempo"
	"go.uber.org/zap"
)

// Register places a host object under time control.
func (e *Engine) Register(h tempo.Handle, props []string, physics bool) (tempo.EntityID, error) {
	id, err := e.reg.Register(h, props, physics)
	if err != nil {
		return 0, err
	}
	event.Emit(e.bus, event.EntityRegistered{ID: id})
	return id, nil
}

// Unregister removes id immediately. Use Registry().MarkForRemoval from
// inside a tick walk.
func (e *Engine) Unregister(id tempo.EntityID) {
	if !e.reg.Alive(id) {
		return
	}
	e.reg.Unregister(id)
	event.Emit(e.bus, event.EntityUnregistered{ID: id})
}

func (e *Engine) SetCustomScale(id tempo.EntityID, scale float64) bool {
	return e.reg.SetCustomScale(id, scale)
}

// RequestScale forwards to the clock. False means the request was refused
// for lack of energy.
func (e *Engine) RequestScale(target float64, immediate bool) bool {
	return e.clock.RequestScale(target, immediate)
}

// SlowMotion eases time down to factor.
func (e *Engine) SlowMotion(factor float64) bool { return e.clock.RequestScale(factor, false) }

// StopTime freezes time at once.
func (e *Engine) StopTime() bool { return e.clock.RequestScale(0, true) }

// SpeedUp eases time up to factor. Never costs energy.
func (e *Engine) SpeedUp(factor float64) bool { return e.clock.RequestScale(factor, false) }

// ResumeNormal eases back to real time.
func (e *Engine) ResumeNormal() bool { return e.clock.RequestScale(1, false) }

// StartRewind begins a rewind of d seconds anchored at the current
// simulation time. Tracked entities are frozen while playback drives them.
func (e *Engine) StartRewind(d float64) bool {
	now := e.clock.Elapsed()
	if !e.rewind.Start(d, e.clock, e.rec, now) {
		return false
	}
	e.reg.Each(func(t *tempo.TrackedEntity) {
		e.reg.ApplyScale(t.ID, 0)
	})
	event.Emit(e.bus, event.RewindStarted{Duration: d, Anchor: now})
	return true
}

// StopRewind ends an active rewind early.
func (e *Engine) StopRewind() bool {
	end, ok := e.rewind.Stop()
	if ok {
		event.Emit(e.bus, event.RewindEnded{Reason: end.Reason, RestoredTo: end.RestoredTo})
	}
	return ok
}

func (e *Engine) CreateBubble(center tempo.Vec3, radius, scale, duration float64) (tempo.BubbleID, error) {
	id, err := e.zones.CreateBubble(center, radius, scale, duration)
	if err != nil {
		e.log.Debug("bubble rejected", zap.Error(err))
		return 0, err
	}
	event.Emit(e.bus, event.BubbleCreated{ID: id, Center: center, Radius: radius, Scale: scale})
	return id, nil
}

func (e *Engine) RemoveBubble(id tempo.BubbleID) bool {
	if !e.zones.RemoveBubble(id) {
		return false
	}
	event.Emit(e.bus, event.BubbleRemoved{ID: id})
	return true
}

// Query surface.

func (e *Engine) CurrentScale() float64     { return e.clock.Scale() }
func (e *Engine) EnergyPercentage() float64 { return e.clock.EnergyPercentage() }
func (e *Engine) IsRewinding() bool         { return e.rewind.Active() }
func (e *Engine) TimelineSpan() float64     { return e.rec.Span() }
func (e *Engine) BubbleCount() int          { return e.zones.Count() }
