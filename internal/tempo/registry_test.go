package tempo

import (
	"errors"
	"math/rand"
	"testing"
)

func TestRegisterNilHandleFails(t *testing.T) {
	reg := NewRegistry(nil)
	var typedNil *prop

	for name, h := range map[string]Handle{"untyped": nil, "typed": typedNil} {
		_, err := reg.Register(h, []string{"position"}, false)
		var owner *InvalidOwnerError
		if !errors.As(err, &owner) {
			t.Fatalf("%s nil: err = %v, want *InvalidOwnerError", name, err)
		}
		if !errors.Is(err, ErrInvalidOwner) {
			t.Fatalf("%s nil: errors.Is(err, ErrInvalidOwner) = false", name)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d after failed registrations, want 0", reg.Len())
	}
}

func TestRegisterDuplicateAndNonComparableFail(t *testing.T) {
	reg := NewRegistry(nil)
	p := newProp(0)
	if _, err := reg.Register(p, nil, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Register(p, nil, false); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("duplicate Register err = %v, want ErrInvalidOwner", err)
	}
	if _, err := reg.Register(sliceHandle{1}, nil, false); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("non-comparable Register err = %v, want ErrInvalidOwner", err)
	}
	if _, err := reg.Register(valueHandle{"a"}, nil, false); err != nil {
		t.Fatalf("comparable value handle: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegisterDefaultsProperties(t *testing.T) {
	reg := NewRegistry(nil)
	id, err := reg.Register(newProp(0), nil, true)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	e, ok := reg.Get(id)
	if !ok {
		t.Fatalf("Get(%v) missing", id)
	}
	if len(e.Properties) != 2 || e.Properties[0] != "transform" || e.Properties[1] != "visible" {
		t.Fatalf("Properties = %v, want %v", e.Properties, DefaultProperties)
	}
	if e.CustomScale != 1 || !e.Physics {
		t.Fatalf("entity = %+v, want custom scale 1 and physics", e)
	}
}

func TestRegistryIDsStayUniqueUnderChurn(t *testing.T) {
	reg := NewRegistry(nil)
	rng := rand.New(rand.NewSource(7))
	var live []EntityID
	issued := map[EntityID]bool{}

	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			j := rng.Intn(len(live))
			reg.Unregister(live[j])
			reg.Unregister(live[j]) // redundant cleanup is fine
			live = append(live[:j], live[j+1:]...)
			continue
		}
		id, err := reg.Register(newProp(float64(i)), nil, false)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if issued[id] {
			t.Fatalf("id %v issued twice", id)
		}
		issued[id] = true
		live = append(live, id)
	}

	seen := map[EntityID]bool{}
	reg.Each(func(e *TrackedEntity) {
		if seen[e.ID] {
			t.Fatalf("live id %v reported twice", e.ID)
		}
		seen[e.ID] = true
	})
	if len(seen) != len(live) || reg.Len() != len(live) {
		t.Fatalf("live = %d, registry = %d/%d", len(live), len(seen), reg.Len())
	}
}

func TestUnregisterInvalidatesHandle(t *testing.T) {
	reg := NewRegistry(nil)
	p := newProp(0)
	id, _ := reg.Register(p, nil, false)
	reg.Unregister(id)

	if reg.Alive(id) {
		t.Fatalf("Alive(%v) after Unregister", id)
	}
	if reg.SetCustomScale(id, 2) {
		t.Fatalf("SetCustomScale on removed entity = true")
	}
	if got := reg.ApplyEffectiveScale(id, 1); got != 0 || p.scaleSet != 0 {
		t.Fatalf("ApplyEffectiveScale reached removed entity")
	}
	// the handle may be registered again and gets a fresh id
	id2, err := reg.Register(p, nil, false)
	if err != nil || id2 == id {
		t.Fatalf("re-register = %v, %v", id2, err)
	}
}

func TestApplyEffectiveScale(t *testing.T) {
	reg := NewRegistry(nil)
	p := newProp(0)
	id, _ := reg.Register(p, nil, false)
	reg.SetCustomScale(id, 0.5)

	if got := reg.ApplyEffectiveScale(id, 0.8); got != 0.4 {
		t.Fatalf("ApplyEffectiveScale = %v, want 0.4", got)
	}
	if p.scale != 0.4 {
		t.Fatalf("host scale = %v, want 0.4", p.scale)
	}
}

func TestDeferredRemoval(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := reg.Register(newProp(0), nil, false)
	b, _ := reg.Register(newProp(1), nil, false)

	reg.Each(func(e *TrackedEntity) {
		reg.MarkForRemoval(e.ID)
	})
	reg.MarkForRemoval(a) // duplicate
	if reg.Len() != 2 {
		t.Fatalf("removal not deferred: Len() = %d", reg.Len())
	}
	removed := reg.FlushRemovals()
	if len(removed) != 2 || removed[0] != a || removed[1] != b {
		t.Fatalf("FlushRemovals() = %v, want [%v %v]", removed, a, b)
	}
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d after flush", reg.Len())
	}
	if got := reg.FlushRemovals(); got != nil {
		t.Fatalf("second flush = %v, want nil", got)
	}
}
