package world

import (
	"math"

	"github.com/timeweave/engine/internal/tempo"
)

// Property names understood by host objects.
const (
	PropTransform = "transform"
	PropVelocity  = "velocity"
	PropVisible   = "visible"
	PropPlayhead  = "playhead"
)

// Body is a physics host object: it moves at Velocity scaled by its time
// scale. Bodies with Script set are steered by the scripting hook.
type Body struct {
	Name     string
	Pos      tempo.Vec3
	Vel      tempo.Vec3
	Visible  bool
	Script   bool
	scale    float64
	entityID tempo.EntityID
	indexed  tempo.Vec3 // position last written to the grid
}

func NewBody(name string, pos, vel tempo.Vec3) *Body {
	return &Body{Name: name, Pos: pos, Vel: vel, Visible: true, scale: 1}
}

func (b *Body) ReadProperties(names []string) tempo.PropertySnapshot {
	s := make(tempo.PropertySnapshot, len(names))
	for _, n := range names {
		switch n {
		case PropTransform:
			s[n] = tempo.Vector(b.Pos)
		case PropVelocity:
			s[n] = tempo.Vector(b.Vel)
		case PropVisible:
			s[n] = tempo.Flag(b.Visible)
		}
	}
	return s
}

func (b *Body) WriteProperties(s tempo.PropertySnapshot) {
	if v, ok := s[PropTransform]; ok && v.Kind == tempo.KindVector {
		b.Pos = v.Vec
	}
	if v, ok := s[PropVelocity]; ok && v.Kind == tempo.KindVector {
		b.Vel = v.Vec
	}
	if v, ok := s[PropVisible]; ok && v.Kind == tempo.KindFlag {
		b.Visible = v.Bool
	}
}

func (b *Body) SetTimeScale(scale float64) { b.scale = scale }
func (b *Body) TimeScale() float64         { return b.scale }
func (b *Body) Position() tempo.Vec3       { return b.Pos }

// EntityID is the id assigned at registration, zero before that.
func (b *Body) EntityID() tempo.EntityID { return b.entityID }

// Animator is a non-physics host object: a looping playhead advanced at
// Rate seconds per second of scaled time.
type Animator struct {
	Name     string
	Playhead float64
	Length   float64
	Rate     float64
	Visible  bool
	scale    float64
	entityID tempo.EntityID
}

func NewAnimator(name string, length, rate float64) *Animator {
	return &Animator{Name: name, Length: length, Rate: rate, Visible: true, scale: 1}
}

func (a *Animator) ReadProperties(names []string) tempo.PropertySnapshot {
	s := make(tempo.PropertySnapshot, len(names))
	for _, n := range names {
		switch n {
		case PropPlayhead:
			s[n] = tempo.Number(a.Playhead)
		case PropVisible:
			s[n] = tempo.Flag(a.Visible)
		}
	}
	return s
}

func (a *Animator) WriteProperties(s tempo.PropertySnapshot) {
	if v, ok := s[PropPlayhead]; ok && v.Kind == tempo.KindNumber {
		a.Playhead = v.Num
	}
	if v, ok := s[PropVisible]; ok && v.Kind == tempo.KindFlag {
		a.Visible = v.Bool
	}
}

func (a *Animator) SetTimeScale(scale float64) { a.scale = scale }
func (a *Animator) TimeScale() float64         { return a.scale }
func (a *Animator) EntityID() tempo.EntityID   { return a.entityID }

func (a *Animator) advance(dt float64) {
	a.Playhead += a.Rate * dt * a.scale
	if a.Length <= 0 {
		return
	}
	a.Playhead = math.Mod(a.Playhead, a.Length)
	if a.Playhead < 0 {
		a.Playhead += a.Length
	}
}
