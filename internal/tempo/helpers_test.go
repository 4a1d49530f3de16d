package tempo

// prop is a minimal host object with one numeric property, a visibility flag
// and a position.
type prop struct {
	position float64
	visible  bool
	at       Vec3
	scale    float64
	scaleSet int
	writes   int
}

func newProp(pos float64) *prop { return &prop{position: pos, visible: true, scale: 1} }

func (p *prop) ReadProperties(names []string) PropertySnapshot {
	out := PropertySnapshot{}
	for _, n := range names {
		switch n {
		case "position":
			out[n] = Number(p.position)
		case "visible":
			out[n] = Flag(p.visible)
		case "transform":
			out[n] = Vector(p.at)
		}
	}
	// an undeclared extra the recorder must drop
	out["debug_only"] = Number(42)
	return out
}

func (p *prop) WriteProperties(s PropertySnapshot) {
	p.writes++
	if v, ok := s["position"]; ok {
		p.position = v.Num
	}
	if v, ok := s["visible"]; ok {
		p.visible = v.Bool
	}
	if v, ok := s["transform"]; ok {
		p.at = v.Vec
	}
}

func (p *prop) SetTimeScale(s float64) {
	p.scale = s
	p.scaleSet++
}

func (p *prop) Position() Vec3 { return p.at }

// valueHandle is a non-pointer handle type that is still comparable.
type valueHandle struct{ name string }

func (valueHandle) ReadProperties([]string) PropertySnapshot { return PropertySnapshot{} }
func (valueHandle) WriteProperties(PropertySnapshot)         {}
func (valueHandle) SetTimeScale(float64)                     {}

// sliceHandle is not comparable and must be refused.
type sliceHandle []int

func (sliceHandle) ReadProperties([]string) PropertySnapshot { return PropertySnapshot{} }
func (sliceHandle) WriteProperties(PropertySnapshot)         {}
func (sliceHandle) SetTimeScale(float64)                     {}

func testClock(mutate func(*ClockConfig)) *Clock {
	cfg := DefaultClockConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClock(cfg, nil)
}
