package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/timeweave/engine/internal/tempo"
	"github.com/timeweave/engine/internal/world"
	"gopkg.in/yaml.v3"
)

// Point is a [x, y, z] triple in scenario files.
type Point [3]float64

func (p Point) Vec() tempo.Vec3 { return tempo.Vec3{X: p[0], Y: p[1], Z: p[2]} }

// BodySpec defines a physics body placed at startup.
type BodySpec struct {
	Name        string   `yaml:"name"`
	Position    Point    `yaml:"position"`
	Velocity    Point    `yaml:"velocity"`
	Scripted    bool     `yaml:"scripted"`
	Hidden      bool     `yaml:"hidden"`
	CustomScale *float64 `yaml:"custom_scale"` // nil = 1
}

// AnimatorSpec defines a looping animation.
type AnimatorSpec struct {
	Name        string   `yaml:"name"`
	Length      float64  `yaml:"length"`
	Rate        float64  `yaml:"rate"`
	CustomScale *float64 `yaml:"custom_scale"`
}

// BubbleSpec defines a time bubble created once the world is registered.
// Duration < 0 means infinite.
type BubbleSpec struct {
	Center   Point   `yaml:"center"`
	Radius   float64 `yaml:"radius"`
	Scale    float64 `yaml:"scale"`
	Duration float64 `yaml:"duration"`
}

// Scenario is the startup content of a host world.
type Scenario struct {
	CellSize  float64        `yaml:"cell_size"`
	Bodies    []BodySpec     `yaml:"bodies"`
	Animators []AnimatorSpec `yaml:"animators"`
	Bubbles   []BubbleSpec   `yaml:"bubbles"`
}

// LoadScenario loads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	s, err := ParseScenario(raw)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every problem found, joined.
func (s *Scenario) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, b := range s.Bodies {
		switch {
		case b.Name == "":
			errs = append(errs, fmt.Errorf("bodies[%d]: name is required", i))
		case seen[b.Name]:
			errs = append(errs, fmt.Errorf("bodies[%d]: duplicate name %q", i, b.Name))
		}
		seen[b.Name] = true
		if b.CustomScale != nil && *b.CustomScale < 0 {
			errs = append(errs, fmt.Errorf("bodies[%d]: custom_scale must be >= 0", i))
		}
	}
	seenAnim := make(map[string]bool)
	for i, a := range s.Animators {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("animators[%d]: name is required", i))
		case seenAnim[a.Name]:
			errs = append(errs, fmt.Errorf("animators[%d]: duplicate name %q", i, a.Name))
		}
		seenAnim[a.Name] = true
		if a.Length <= 0 {
			errs = append(errs, fmt.Errorf("animators[%d]: length must be > 0", i))
		}
	}
	for i, b := range s.Bubbles {
		if !(b.Radius > 0) {
			errs = append(errs, fmt.Errorf("bubbles[%d]: radius must be > 0", i))
		}
	}
	return errors.Join(errs...)
}

// Populate adds the scenario's bodies and animators to the world.
func (s *Scenario) Populate(ws *world.State) error {
	for _, def := range s.Bodies {
		b := world.NewBody(def.Name, def.Position.Vec(), def.Velocity.Vec())
		b.Script = def.Scripted
		b.Visible = !def.Hidden
		if err := ws.AddBody(b); err != nil {
			return err
		}
	}
	for _, def := range s.Animators {
		if err := ws.AddAnimator(world.NewAnimator(def.Name, def.Length, def.Rate)); err != nil {
			return err
		}
	}
	return nil
}

// CustomScales maps object names to their configured custom scale.
func (s *Scenario) CustomScales() map[string]float64 {
	out := make(map[string]float64)
	for _, b := range s.Bodies {
		if b.CustomScale != nil {
			out[b.Name] = *b.CustomScale
		}
	}
	for _, a := range s.Animators {
		if a.CustomScale != nil {
			out[a.Name] = *a.CustomScale
		}
	}
	return out
}
