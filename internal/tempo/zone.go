package tempo

import "go.uber.org/zap"

// BubbleID identifies a time bubble. Ids are never reused.
type BubbleID uint64

// TimeBubble is a spherical region imposing its own time scale on the
// entities inside it. A negative Duration never expires.
type TimeBubble struct {
	ID       BubbleID
	Center   Vec3
	Radius   float64
	Scale    float64
	Duration float64
	Members  map[EntityID]float64 // entity -> distance from center
}

func (b *TimeBubble) Infinite() bool { return b.Duration < 0 }

// Falloff maps a member's distance to the scale it experiences. The default
// (nil) gives every member the bubble's flat scale.
type Falloff func(distance, radius, scale float64) float64

// Zones manages time bubbles. Overlaps resolve to the most recently created
// bubble containing the entity.
type Zones struct {
	bubbles []*TimeBubble // creation order
	nextID  BubbleID
	falloff Falloff
	log     *zap.Logger
}

func NewZones(log *zap.Logger) *Zones {
	if log == nil {
		log = zap.NewNop()
	}
	return &Zones{log: log}
}

// SetFalloff installs a distance falloff for member scales.
func (z *Zones) SetFalloff(f Falloff) { z.falloff = f }

// CreateBubble adds a bubble. Membership is filled in on the next Tick.
func (z *Zones) CreateBubble(center Vec3, radius, scale, duration float64) (BubbleID, error) {
	if !(radius > 0) {
		return 0, &InvalidBubbleError{Radius: radius}
	}
	if duration < 0 {
		duration = -1
	}
	z.nextID++
	b := &TimeBubble{
		ID:       z.nextID,
		Center:   center,
		Radius:   radius,
		Scale:    scale,
		Duration: duration,
		Members:  make(map[EntityID]float64),
	}
	z.bubbles = append(z.bubbles, b)
	z.log.Debug("bubble created",
		zap.Uint64("bubble", uint64(b.ID)), zap.Float64("radius", radius),
		zap.Float64("scale", scale), zap.Float64("duration", duration))
	return b.ID, nil
}

// RemoveBubble deletes a bubble without restoring its members; the next
// scale pass picks up their ambient scale.
func (z *Zones) RemoveBubble(id BubbleID) bool {
	for i, b := range z.bubbles {
		if b.ID == id {
			z.bubbles = append(z.bubbles[:i], z.bubbles[i+1:]...)
			return true
		}
	}
	return false
}

// Tick ages finite bubbles by delta × ambient, re-tests membership against
// every tracked entity, and retires expired bubbles after putting their
// former members back on ambient × custom. Returns the expired ids.
func (z *Zones) Tick(delta, ambient float64, reg *Registry, lookup PositionLookup) []BubbleID {
	return z.tick(delta, ambient, reg, lookup, true)
}

// TickFrozen is Tick for a rewind in progress: members of expired bubbles
// keep their current scale, and the first scale pass after the rewind
// restores them.
func (z *Zones) TickFrozen(delta, ambient float64, reg *Registry, lookup PositionLookup) []BubbleID {
	return z.tick(delta, ambient, reg, lookup, false)
}

func (z *Zones) tick(delta, ambient float64, reg *Registry, lookup PositionLookup, restore bool) []BubbleID {
	if lookup == nil {
		lookup = reg.Position
	}
	var expired []BubbleID
	kept := z.bubbles[:0]
	for _, b := range z.bubbles {
		finite := !b.Infinite()
		if finite {
			b.Duration -= delta * ambient
		}
		previous := b.Members
		b.Members = make(map[EntityID]float64, len(previous))
		reg.Each(func(e *TrackedEntity) {
			pos, ok := lookup(e.ID)
			if !ok {
				return
			}
			if d := pos.Dist(b.Center); d <= b.Radius {
				b.Members[e.ID] = d
			}
		})

		if finite && b.Duration <= 0 {
			if restore {
				for id := range previous {
					reg.ApplyEffectiveScale(id, ambient)
				}
			}
			expired = append(expired, b.ID)
			z.log.Debug("bubble expired", zap.Uint64("bubble", uint64(b.ID)))
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(z.bubbles); i++ {
		z.bubbles[i] = nil
	}
	z.bubbles = kept
	return expired
}

// EffectiveScaleFor returns the scale of the last-created bubble holding
// id, or ambient × custom when no bubble does.
func (z *Zones) EffectiveScaleFor(id EntityID, ambient, custom float64) float64 {
	for i := len(z.bubbles) - 1; i >= 0; i-- {
		b := z.bubbles[i]
		if d, ok := b.Members[id]; ok {
			if z.falloff != nil {
				return z.falloff(d, b.Radius, b.Scale)
			}
			return b.Scale
		}
	}
	return ambient * custom
}

// InBubble reports whether any bubble currently holds id.
func (z *Zones) InBubble(id EntityID) bool {
	for _, b := range z.bubbles {
		if _, ok := b.Members[id]; ok {
			return true
		}
	}
	return false
}

// Remove forgets id in every bubble. Registered with the Registry so
// unregistered entities leave no trace here.
func (z *Zones) Remove(id EntityID) {
	for _, b := range z.bubbles {
		delete(b.Members, id)
	}
}

func (z *Zones) Count() int { return len(z.bubbles) }

// Bubbles returns copies of the live bubbles in creation order.
func (z *Zones) Bubbles() []TimeBubble {
	out := make([]TimeBubble, len(z.bubbles))
	for i, b := range z.bubbles {
		cp := *b
		cp.Members = make(map[EntityID]float64, len(b.Members))
		for id, d := range b.Members {
			cp.Members[id] = d
		}
		out[i] = cp
	}
	return out
}
