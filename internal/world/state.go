package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timeweave/engine/internal/tempo"
)

// Steerer computes a new velocity for a scripted body. ok=false keeps the
// current velocity.
type Steerer interface {
	Steer(b *Body, dt float64) (vel tempo.Vec3, ok bool)
}

// Registrar is the registration half of the engine facade.
type Registrar interface {
	Register(h tempo.Handle, props []string, physics bool) (tempo.EntityID, error)
	Unregister(id tempo.EntityID)
}

// State holds the demo host world.
// Accessed only from the game loop goroutine, no locks needed.
type State struct {
	bodies    map[string]*Body
	animators map[string]*Animator
	order     []string // insertion order of bodies
	animOrder []string
	grid      *Grid
	steer     Steerer
}

func NewState(cellSize float64) *State {
	return &State{
		bodies:    make(map[string]*Body),
		animators: make(map[string]*Animator),
		grid:      NewGrid(cellSize),
	}
}

// SetSteerer installs the steering hook for scripted bodies. nil disables it.
func (s *State) SetSteerer(st Steerer) { s.steer = st }

func (s *State) AddBody(b *Body) error {
	if _, dup := s.bodies[b.Name]; dup {
		return fmt.Errorf("body %q already exists", b.Name)
	}
	s.bodies[b.Name] = b
	s.order = append(s.order, b.Name)
	s.grid.Add(b.Name, b.Pos)
	b.indexed = b.Pos
	return nil
}

func (s *State) AddAnimator(a *Animator) error {
	if _, dup := s.animators[a.Name]; dup {
		return fmt.Errorf("animator %q already exists", a.Name)
	}
	s.animators[a.Name] = a
	s.animOrder = append(s.animOrder, a.Name)
	return nil
}

// RemoveBody drops a body from the world and unregisters it.
func (s *State) RemoveBody(name string, reg Registrar) *Body {
	b, ok := s.bodies[name]
	if !ok {
		return nil
	}
	delete(s.bodies, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.grid.Remove(name, b.indexed)
	if reg != nil && b.entityID != 0 {
		reg.Unregister(b.entityID)
		b.entityID = 0
	}
	return b
}

func (s *State) Body(name string) *Body         { return s.bodies[name] }
func (s *State) Animator(name string) *Animator { return s.animators[name] }
func (s *State) BodyCount() int                 { return len(s.bodies) }
func (s *State) AnimatorCount() int             { return len(s.animators) }

// AllBodies iterates bodies in insertion order.
func (s *State) AllBodies(fn func(*Body)) {
	for _, n := range s.order {
		fn(s.bodies[n])
	}
}

// AllAnimators iterates animators in insertion order.
func (s *State) AllAnimators(fn func(*Animator)) {
	for _, n := range s.animOrder {
		fn(s.animators[n])
	}
}

// RegisterAll registers every object not yet tracked. Bodies are tracked
// with transform, velocity and visible; animators with playhead and visible.
func (s *State) RegisterAll(reg Registrar) error {
	for _, n := range s.order {
		b := s.bodies[n]
		if b.entityID != 0 {
			continue
		}
		id, err := reg.Register(b, []string{PropTransform, PropVelocity, PropVisible}, true)
		if err != nil {
			return fmt.Errorf("register body %q: %w", n, err)
		}
		b.entityID = id
	}
	for _, n := range s.animOrder {
		a := s.animators[n]
		if a.entityID != 0 {
			continue
		}
		id, err := reg.Register(a, []string{PropPlayhead, PropVisible}, false)
		if err != nil {
			return fmt.Errorf("register animator %q: %w", n, err)
		}
		a.entityID = id
	}
	return nil
}

// Within returns the bodies whose position lies within radius of center,
// sorted by name.
func (s *State) Within(center tempo.Vec3, radius float64) []*Body {
	var out []*Body
	for _, n := range s.grid.Candidates(center, radius) {
		b := s.bodies[n]
		if b != nil && b.Pos.Dist(center) <= radius {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Step advances every host object by dt seconds of real time. Each object
// applies its own time scale.
func (s *State) Step(dt float64) {
	for _, n := range s.order {
		b := s.bodies[n]
		if b.Script && s.steer != nil {
			if v, ok := s.steer.Steer(b, dt*b.scale); ok {
				b.Vel = v
			}
		}
		b.Pos = b.Pos.Add(b.Vel.Scale(dt * b.scale))
		s.grid.Move(n, b.indexed, b.Pos)
		b.indexed = b.Pos
	}
	for _, n := range s.animOrder {
		s.animators[n].advance(dt)
	}
}

// NameOf returns the stable name of a tracked object, "body/<name>" or
// "anim/<name>". Entity ids change across restarts; these names do not.
func (s *State) NameOf(id tempo.EntityID) (string, bool) {
	if id == 0 {
		return "", false
	}
	for _, n := range s.order {
		if s.bodies[n].entityID == id {
			return "body/" + n, true
		}
	}
	for _, n := range s.animOrder {
		if s.animators[n].entityID == id {
			return "anim/" + n, true
		}
	}
	return "", false
}

// IDOf resolves a name produced by NameOf back to the current entity id.
func (s *State) IDOf(name string) (tempo.EntityID, bool) {
	kind, n, ok := strings.Cut(name, "/")
	if !ok {
		return 0, false
	}
	switch kind {
	case "body":
		if b := s.bodies[n]; b != nil && b.entityID != 0 {
			return b.entityID, true
		}
	case "anim":
		if a := s.animators[n]; a != nil && a.entityID != 0 {
			return a.entityID, true
		}
	}
	return 0, false
}
