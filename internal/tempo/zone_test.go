package tempo

import (
	"errors"
	"testing"
)

func TestBubbleScenario(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	reg.Track(z)
	p := newProp(0)
	p.at = Vec3{3, 0, 0}
	id, _ := reg.Register(p, nil, false)

	if _, err := z.CreateBubble(Vec3{}, 5, 0.5, 2); err != nil {
		t.Fatalf("CreateBubble: %v", err)
	}
	if got := z.EffectiveScaleFor(id, 1, 1); got != 1 {
		t.Fatalf("membership computed before tick: %v", got)
	}

	for i := 0; i < 3; i++ {
		if expired := z.Tick(0.5, 1, reg, nil); len(expired) != 0 {
			t.Fatalf("tick %d expired %v", i, expired)
		}
		if got := z.EffectiveScaleFor(id, 1, 1); got != 0.5 {
			t.Fatalf("tick %d: EffectiveScaleFor = %v, want 0.5", i, got)
		}
	}

	expired := z.Tick(0.5, 1, reg, nil)
	if len(expired) != 1 {
		t.Fatalf("bubble not expired after 2 ambient seconds")
	}
	if z.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", z.Count())
	}
	if got := z.EffectiveScaleFor(id, 1, 0.8); got != 0.8 {
		t.Fatalf("after expiry EffectiveScaleFor = %v, want ambient×custom 0.8", got)
	}
	if p.scaleSet != 1 || p.scale != 1 {
		t.Fatalf("expired bubble did not restore host scale: %v (%d calls)", p.scale, p.scaleSet)
	}
}

func TestBubbleAgesWithAmbientScale(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	z.CreateBubble(Vec3{}, 1, 0.5, 1)

	z.Tick(1, 0, reg, nil)
	if z.Count() != 1 {
		t.Fatalf("bubble aged while time was stopped")
	}
	z.Tick(0.25, 4, reg, nil)
	if z.Count() != 0 {
		t.Fatalf("bubble survived one ambient second at 4x")
	}
}

func TestBubbleExpiresWhenDeltaOvershoots(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	reg.Track(z)
	p := newProp(0)
	p.at = Vec3{3, 0, 0}
	id, _ := reg.Register(p, nil, false)
	z.CreateBubble(Vec3{}, 5, 0.5, 2)

	ticks := 0
	for z.Count() > 0 && ticks < 40 {
		z.Tick(0.3, 1, reg, nil)
		ticks++
	}
	if z.Count() != 0 {
		t.Fatalf("bubble with duration 2 alive after %d ticks of 0.3s", ticks)
	}
	if ticks != 7 {
		t.Fatalf("expired after %d ticks, want 7", ticks)
	}
	if got := z.EffectiveScaleFor(id, 1, 1); got != 1 {
		t.Fatalf("EffectiveScaleFor after expiry = %v, want 1", got)
	}
}

func TestTickFrozenLeavesMembersAlone(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	reg.Track(z)
	p := newProp(0)
	p.at = Vec3{1, 0, 0}
	reg.Register(p, nil, false)
	z.CreateBubble(Vec3{}, 5, 0.5, 1)
	z.Tick(0.5, 1, reg, nil)

	calls := p.scaleSet
	if expired := z.TickFrozen(0.5, 1, reg, nil); len(expired) != 1 {
		t.Fatalf("TickFrozen expired %v, want one bubble", expired)
	}
	if p.scaleSet != calls {
		t.Fatalf("TickFrozen touched the member scale: %v", p.scale)
	}
}

func TestCreateBubbleValidation(t *testing.T) {
	z := NewZones(nil)
	for _, r := range []float64{0, -1} {
		_, err := z.CreateBubble(Vec3{}, r, 0.5, 1)
		if !errors.Is(err, ErrInvalidBubble) {
			t.Fatalf("radius %v: err = %v, want ErrInvalidBubble", r, err)
		}
	}
	id, err := z.CreateBubble(Vec3{}, 1, 0.5, -7)
	if err != nil {
		t.Fatalf("CreateBubble: %v", err)
	}
	b := z.Bubbles()[0]
	if b.ID != id || !b.Infinite() {
		t.Fatalf("negative duration not infinite: %+v", b)
	}
	reg := NewRegistry(nil)
	for i := 0; i < 100; i++ {
		z.Tick(10, 1, reg, nil)
	}
	if z.Count() != 1 {
		t.Fatalf("infinite bubble expired")
	}
}

func TestOverlappingBubblesLastCreatedWins(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	p := newProp(0)
	id, _ := reg.Register(p, nil, false)

	z.CreateBubble(Vec3{}, 10, 0.25, -1)
	second, _ := z.CreateBubble(Vec3{1, 0, 0}, 10, 2, -1)
	z.Tick(0.1, 1, reg, nil)

	if got := z.EffectiveScaleFor(id, 1, 1); got != 2 {
		t.Fatalf("EffectiveScaleFor = %v, want last-created 2", got)
	}
	z.RemoveBubble(second)
	if got := z.EffectiveScaleFor(id, 1, 1); got != 0.25 {
		t.Fatalf("after removing newest, scale = %v, want 0.25", got)
	}
}

func TestMembershipFollowsPositionAndLookup(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	reg.Track(z)
	p := newProp(0)
	id, _ := reg.Register(p, nil, false)
	z.CreateBubble(Vec3{}, 2, 0.5, -1)

	z.Tick(0.1, 1, reg, nil)
	if !z.InBubble(id) {
		t.Fatalf("entity at origin not in bubble")
	}
	p.at = Vec3{0, 0, 5}
	z.Tick(0.1, 1, reg, nil)
	if z.InBubble(id) {
		t.Fatalf("entity outside radius still a member")
	}

	atOrigin := func(EntityID) (Vec3, bool) { return Vec3{}, true }
	z.Tick(0.1, 1, reg, atOrigin)
	if !z.InBubble(id) {
		t.Fatalf("PositionLookup ignored")
	}

	reg.Unregister(id)
	if z.InBubble(id) {
		t.Fatalf("unregistered entity left in bubble membership")
	}
}

func TestFalloff(t *testing.T) {
	reg := NewRegistry(nil)
	z := NewZones(nil)
	p := newProp(0)
	p.at = Vec3{2, 0, 0}
	id, _ := reg.Register(p, nil, false)
	z.CreateBubble(Vec3{}, 4, 0, -1)
	z.SetFalloff(func(d, r, s float64) float64 { return s + (1-s)*d/r })
	z.Tick(0.1, 1, reg, nil)

	if got := z.EffectiveScaleFor(id, 1, 1); got != 0.5 {
		t.Fatalf("falloff scale = %v, want 0.5", got)
	}
}
