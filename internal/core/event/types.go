package event

import (
	"github.com/timeweave/engine/internal/core/ecs"
	"github.com/timeweave/engine/internal/tempo"
)

// ScaleChanged fires when the smoothed global scale settles on a new target
// or a request is accepted.
type ScaleChanged struct {
	From, To float64
}

// EnergyDepleted fires when the clock runs dry and releases time control.
type EnergyDepleted struct {
	At float64
}

type RewindStarted struct {
	Duration float64
	Anchor   float64
}

type RewindEnded struct {
	Reason     tempo.RewindReason
	RestoredTo float64
}

type BubbleCreated struct {
	ID     tempo.BubbleID
	Center tempo.Vec3
	Radius float64
	Scale  float64
}

type BubbleExpired struct {
	ID tempo.BubbleID
}

// BubbleRemoved fires when a bubble is cancelled before it expires.
type BubbleRemoved struct {
	ID tempo.BubbleID
}

type EntityRegistered struct {
	ID ecs.EntityID
}

type EntityUnregistered struct {
	ID ecs.EntityID
}
