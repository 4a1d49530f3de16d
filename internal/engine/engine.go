// Package engine assembles the time control components into one tick loop.
//
// Every call on Engine except Status must come from the goroutine that
// drives Tick. Status is safe from any goroutine.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/timeweave/engine/internal/core/event"
	coresys "github.com/timeweave/engine/internal/core/system"
	"github.com/timeweave/engine/internal/system"
	"github.com/timeweave/engine/internal/tempo"
	"go.uber.org/zap"
)

// Options configures a new Engine. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	Clock          tempo.ClockConfig    // zero → tempo.DefaultClockConfig()
	RecordInterval float64              // seconds, zero → 0.1
	Retention      float64              // seconds, zero → 10
	Lookup         tempo.PositionLookup // nil → Positioned capability
	Log            *zap.Logger
}

// Status is an immutable copy of the query surface, published after every
// tick.
type Status struct {
	Tick           uint64
	Scale          float64
	Target         float64
	Energy         float64
	EnergyPercent  float64
	Elapsed        float64
	Rewinding      bool
	RewindProgress float64
	TimelineLen    int
	TimelineSpan   float64
	Bubbles        int
	Entities       int
}

type Engine struct {
	clock  *tempo.Clock
	reg    *tempo.Registry
	rec    *tempo.Recorder
	rewind *tempo.Rewinder
	zones  *tempo.Zones
	bus    *event.Bus
	runner *coresys.Runner
	ticks  uint64
	status atomic.Pointer[Status]
	log    *zap.Logger
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Clock == (tempo.ClockConfig{}) {
		opts.Clock = tempo.DefaultClockConfig()
	}
	if opts.RecordInterval <= 0 {
		opts.RecordInterval = 0.1
	}
	if opts.Retention <= 0 {
		opts.Retention = 10
	}

	e := &Engine{
		clock:  tempo.NewClock(opts.Clock, log.Named("clock")),
		reg:    tempo.NewRegistry(log.Named("registry")),
		rec:    tempo.NewRecorder(opts.RecordInterval, opts.Retention, log.Named("recorder")),
		rewind: tempo.NewRewinder(opts.Clock.RewindCost, log.Named("rewind")),
		zones:  tempo.NewZones(log.Named("zones")),
		bus:    event.NewBus(),
		runner: coresys.NewRunner(),
		log:    log,
	}
	e.reg.Track(e.zones)

	e.runner.Register(system.NewClockSystem(e.clock, e.rewind, e.bus))
	e.runner.Register(system.NewZoneSystem(e.zones, e.clock, e.reg, e.rewind, opts.Lookup, e.bus))
	e.runner.Register(system.NewScaleSystem(e.reg, e.zones, e.clock, e.rewind))
	e.runner.Register(system.NewRecordSystem(e.rec, e.reg, e.clock, e.rewind))
	e.runner.Register(system.NewRewindSystem(e.rewind, e.reg, e.rec, e.bus))
	e.runner.Register(system.NewCleanupSystem(e.reg, e.bus))
	e.runner.Register(system.NewEventDispatchSystem(e.bus))
	e.publish()
	return e
}

// AddSystem registers an extra system (host step, console input,
// persistence, metrics) into the tick.
func (e *Engine) AddSystem(s coresys.System) { e.runner.Register(s) }

// Tick runs one simulation step through every phase, then publishes Status.
func (e *Engine) Tick(dt time.Duration) {
	e.runner.Tick(dt)
	e.ticks++
	e.publish()
}

// TickPhase runs a single phase without advancing the tick counter.
func (e *Engine) TickPhase(p coresys.Phase, dt time.Duration) { e.runner.TickPhase(p, dt) }

func (e *Engine) Clock() *tempo.Clock       { return e.clock }
func (e *Engine) Registry() *tempo.Registry { return e.reg }
func (e *Engine) Recorder() *tempo.Recorder { return e.rec }
func (e *Engine) Rewinder() *tempo.Rewinder { return e.rewind }
func (e *Engine) Zones() *tempo.Zones       { return e.zones }
func (e *Engine) Bus() *event.Bus           { return e.bus }

// Status returns the snapshot published by the last Tick.
func (e *Engine) Status() Status { return *e.status.Load() }

func (e *Engine) publish() {
	st := &Status{
		Tick:           e.ticks,
		Scale:          e.clock.Scale(),
		Target:         e.clock.Target(),
		Energy:         e.clock.Energy(),
		EnergyPercent:  e.clock.EnergyPercentage(),
		Elapsed:        e.clock.Elapsed(),
		Rewinding:      e.rewind.Active(),
		RewindProgress: e.rewind.Progress(),
		TimelineLen:    e.rec.Len(),
		TimelineSpan:   e.rec.Span(),
		Bubbles:        e.zones.Count(),
		Entities:       e.reg.Len(),
	}
	e.status.Store(st)
}
