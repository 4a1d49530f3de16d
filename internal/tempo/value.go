package tempo

import "fmt"

// ValueKind enumerates the property value shapes hosts can expose.
type ValueKind uint8

const (
	KindNumber ValueKind = iota + 1
	KindVector
	KindFlag
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindVector:
		return "vector"
	case KindFlag:
		return "flag"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one captured property value. Only the field selected by Kind is
// meaningful. Values are plain data, so copying a Value copies the capture.
type Value struct {
	Kind ValueKind `json:"kind"`
	Num  float64   `json:"num,omitempty"`
	Vec  Vec3      `json:"vec,omitempty"`
	Bool bool      `json:"bool,omitempty"`
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Vector(v Vec3) Value    { return Value{Kind: KindVector, Vec: v} }
func Flag(b bool) Value      { return Value{Kind: KindFlag, Bool: b} }

// Equal compares the active field only.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindVector:
		return v.Vec == o.Vec
	case KindFlag:
		return v.Bool == o.Bool
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindVector:
		return fmt.Sprintf("(%g,%g,%g)", v.Vec.X, v.Vec.Y, v.Vec.Z)
	case KindFlag:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return "<invalid>"
	}
}

// PropertySnapshot maps property names to captured values.
type PropertySnapshot map[string]Value

// Clone returns an independent copy.
func (s PropertySnapshot) Clone() PropertySnapshot {
	out := make(PropertySnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// only returns a copy holding just the named properties.
func (s PropertySnapshot) only(names []string) PropertySnapshot {
	out := make(PropertySnapshot, len(names))
	for _, n := range names {
		if v, ok := s[n]; ok {
			out[n] = v
		}
	}
	return out
}
