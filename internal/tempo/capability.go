package tempo

import "github.com/timeweave/engine/internal/core/ecs"

// EntityID identifies a tracked entity. Stale ids never alias a later entity.
type EntityID = ecs.EntityID

// Readable copies the named properties out of a host object.
type Readable interface {
	ReadProperties(names []string) PropertySnapshot
}

// Writable applies a previously captured snapshot back onto a host object.
type Writable interface {
	WriteProperties(s PropertySnapshot)
}

// TimeScalable lets the host decide what a time scale means for an object:
// physics step rate, animation speed, AI tick rate.
type TimeScalable interface {
	SetTimeScale(scale float64)
}

// Positioned is optional. Entities that implement it can fall inside bubbles
// without a PositionLookup.
type Positioned interface {
	Position() Vec3
}

// Handle is the capability set every registered host object provides.
// Handles must be comparable; pointer types are the norm.
type Handle interface {
	Readable
	Writable
	TimeScalable
}

// PositionLookup resolves an entity's position for bubble membership.
type PositionLookup func(id EntityID) (Vec3, bool)
