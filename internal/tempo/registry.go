package tempo

import (
	"reflect"

	"github.com/timeweave/engine/internal/core/ecs"
	"go.uber.org/zap"
)

// DefaultProperties is what an entity observes when registered without an
// explicit property list: its pose and its visibility.
var DefaultProperties = []string{"transform", "visible"}

// TrackedEntity is one host object under time control.
type TrackedEntity struct {
	ID          EntityID
	Handle      Handle
	Properties  []string
	CustomScale float64
	Physics     bool
}

// Registry holds the tracked entities. It keeps registration order so every
// per-tick walk visits entities in the same sequence.
type Registry struct {
	world    *ecs.World
	entities *ecs.PtrComponentStore[TrackedEntity]
	handles  map[Handle]EntityID
	order    []EntityID
	pending  []EntityID // deferred removals, flushed at tick end
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	w := ecs.NewWorld()
	entities := ecs.NewPtrComponentStore[TrackedEntity]()
	w.Registry().Register(entities)
	return &Registry{
		world:    w,
		entities: entities,
		handles:  make(map[Handle]EntityID, 64),
		order:    make([]EntityID, 0, 64),
		log:      log,
	}
}

// Track adds a store that must forget an entity when it is unregistered.
func (r *Registry) Track(store ecs.Removable) {
	r.world.Registry().Register(store)
}

// Register places h under time control.
func (r *Registry) Register(h Handle, props []string, physics bool) (EntityID, error) {
	if isNilHandle(h) {
		return 0, &InvalidOwnerError{Reason: "nil handle"}
	}
	if !reflect.TypeOf(h).Comparable() {
		return 0, &InvalidOwnerError{Reason: "handle type " + reflect.TypeOf(h).String() + " is not comparable"}
	}
	if id, dup := r.handles[h]; dup {
		return 0, &InvalidOwnerError{Reason: "handle already registered as " + id.String()}
	}

	id := r.world.CreateEntity()
	r.entities.Set(id, &TrackedEntity{
		ID:          id,
		Handle:      h,
		Properties:  normalizeProperties(props),
		CustomScale: 1.0,
		Physics:     physics,
	})
	r.handles[h] = id
	r.order = append(r.order, id)
	r.log.Debug("entity registered", zap.Stringer("entity", id), zap.Bool("physics", physics))
	return id, nil
}

// Unregister drops id. Unknown or already removed ids are ignored.
func (r *Registry) Unregister(id EntityID) {
	e, ok := r.entities.Get(id)
	if !ok {
		return
	}
	delete(r.handles, e.Handle)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.world.Destroy(id)
	r.log.Debug("entity unregistered", zap.Stringer("entity", id))
}

// MarkForRemoval queues id for unregistration at the end of the tick, for
// hosts that destroy objects while the registry is being walked.
func (r *Registry) MarkForRemoval(id EntityID) {
	r.pending = append(r.pending, id)
}

// FlushRemovals unregisters every queued id and returns those that were
// still live.
func (r *Registry) FlushRemovals() []EntityID {
	if len(r.pending) == 0 {
		return nil
	}
	var removed []EntityID
	for _, id := range r.pending {
		if r.world.Alive(id) {
			r.Unregister(id)
			removed = append(removed, id)
		}
	}
	r.pending = r.pending[:0]
	return removed
}

// SetCustomScale sets the per-entity multiplier. Unknown ids are logged and
// reported as false.
func (r *Registry) SetCustomScale(id EntityID, scale float64) bool {
	e, ok := r.entities.Get(id)
	if !ok {
		r.log.Debug("custom scale for unknown entity", zap.Stringer("entity", id))
		return false
	}
	e.CustomScale = scale
	return true
}

// ApplyEffectiveScale pushes ambient × custom to the host and returns it.
func (r *Registry) ApplyEffectiveScale(id EntityID, ambient float64) float64 {
	e, ok := r.entities.Get(id)
	if !ok {
		return 0
	}
	s := ambient * e.CustomScale
	e.Handle.SetTimeScale(s)
	return s
}

// ApplyScale pushes scale unchanged, bypassing the custom multiplier.
func (r *Registry) ApplyScale(id EntityID, scale float64) {
	if e, ok := r.entities.Get(id); ok {
		e.Handle.SetTimeScale(scale)
	}
}

func (r *Registry) Get(id EntityID) (*TrackedEntity, bool) {
	return r.entities.Get(id)
}

func (r *Registry) Alive(id EntityID) bool {
	return r.world.Alive(id)
}

// Lookup returns the id registered for h.
func (r *Registry) Lookup(h Handle) (EntityID, bool) {
	if isNilHandle(h) || !reflect.TypeOf(h).Comparable() {
		return 0, false
	}
	id, ok := r.handles[h]
	return id, ok
}

func (r *Registry) Len() int { return len(r.order) }

// Each visits entities in registration order. fn must not register or
// unregister entities.
func (r *Registry) Each(fn func(*TrackedEntity)) {
	for _, id := range r.order {
		if e, ok := r.entities.Get(id); ok {
			fn(e)
		}
	}
}

// IDs returns a copy of the live ids in registration order.
func (r *Registry) IDs() []EntityID {
	out := make([]EntityID, len(r.order))
	copy(out, r.order)
	return out
}

// Position resolves id through its Positioned capability, if any.
func (r *Registry) Position(id EntityID) (Vec3, bool) {
	e, ok := r.entities.Get(id)
	if !ok {
		return Vec3{}, false
	}
	p, ok := e.Handle.(Positioned)
	if !ok {
		return Vec3{}, false
	}
	return p.Position(), true
}

func normalizeProperties(props []string) []string {
	if len(props) == 0 {
		props = DefaultProperties
	}
	out := make([]string, 0, len(props))
	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		out = append(out, DefaultProperties...)
	}
	return out
}

func isNilHandle(h Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
