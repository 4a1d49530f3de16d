package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timeweave/engine/internal/tempo"
	"github.com/timeweave/engine/internal/world"
)

const sampleScenario = `
cell_size: 8
bodies:
  - name: crate
    position: [1, 2, 3]
    velocity: [0.5, 0, 0]
  - name: drone
    position: [10, 0, 0]
    scripted: true
    custom_scale: 0.5
animators:
  - name: fan
    length: 2
    rate: 1.5
bubbles:
  - center: [0, 0, 0]
    radius: 4
    scale: 0.25
    duration: -1
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(sampleScenario))
	if err != nil {
		t.Fatal(err)
	}
	if s.CellSize != 8 || len(s.Bodies) != 2 || len(s.Animators) != 1 || len(s.Bubbles) != 1 {
		t.Fatalf("unexpected scenario: %+v", s)
	}
	if got := s.Bodies[0].Position.Vec(); got != (tempo.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("crate position = %+v", got)
	}
	if s.Bubbles[0].Duration != -1 {
		t.Fatalf("bubble duration = %v", s.Bubbles[0].Duration)
	}

	scales := s.CustomScales()
	if len(scales) != 1 || scales["drone"] != 0.5 {
		t.Fatalf("CustomScales = %v", scales)
	}
}

func TestPopulate(t *testing.T) {
	s, err := ParseScenario([]byte(sampleScenario))
	if err != nil {
		t.Fatal(err)
	}
	ws := world.NewState(s.CellSize)
	if err := s.Populate(ws); err != nil {
		t.Fatal(err)
	}
	if ws.BodyCount() != 2 || ws.AnimatorCount() != 1 {
		t.Fatalf("bodies=%d animators=%d", ws.BodyCount(), ws.AnimatorCount())
	}
	if d := ws.Body("drone"); d == nil || !d.Script {
		t.Fatalf("drone = %+v", d)
	}
	if a := ws.Animator("fan"); a == nil || a.Rate != 1.5 {
		t.Fatalf("fan = %+v", a)
	}
}

func TestScenarioValidation(t *testing.T) {
	raw := `
bodies:
  - name: a
  - name: a
  - position: [0, 0, 0]
animators:
  - name: spin
    length: 0
bubbles:
  - radius: 0
    scale: 0.5
`
	_, err := ParseScenario([]byte(raw))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"duplicate name", "name is required", "length must be", "radius must be"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(sampleScenario), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Bodies) != 2 {
		t.Fatalf("bodies = %d", len(s.Bodies))
	}

	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
