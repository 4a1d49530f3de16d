package persist

import (
	"testing"

	"github.com/timeweave/engine/internal/tempo"
)

func TestSnapshotCodecRemapsEntities(t *testing.T) {
	const (
		oldCrate tempo.EntityID = 1<<32 | 0
		oldDrone tempo.EntityID = 1<<32 | 1
		oldGhost tempo.EntityID = 1<<32 | 2
	)
	names := map[tempo.EntityID]string{oldCrate: "crate", oldDrone: "drone"}
	snaps := []*tempo.TimelineSnapshot{
		{
			Timestamp: 0.5, Scale: 1, Energy: 80,
			Entities: map[tempo.EntityID]tempo.PropertySnapshot{
				oldCrate: {"transform": tempo.Vector(tempo.Vec3{X: 1, Y: 2})},
				oldDrone: {"visible": tempo.Flag(true)},
				oldGhost: {"visible": tempo.Flag(false)}, // no name, dropped
			},
		},
		{
			Timestamp: 0.6, Scale: 0.5, Energy: 79,
			Entities: map[tempo.EntityID]tempo.PropertySnapshot{
				oldCrate: {"playhead": tempo.Number(1.25)},
			},
		},
	}

	raw, err := EncodeSnapshots(snaps, func(id tempo.EntityID) (string, bool) {
		n, ok := names[id]
		return n, ok
	})
	if err != nil {
		t.Fatal(err)
	}

	const newCrate tempo.EntityID = 7<<32 | 4
	got, err := DecodeSnapshots(raw, func(name string) (tempo.EntityID, bool) {
		if name == "crate" {
			return newCrate, true
		}
		return 0, false // drone no longer exists
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d snapshots, want 2", len(got))
	}
	first := got[0]
	if first.Timestamp != 0.5 || first.Scale != 1 || first.Energy != 80 {
		t.Fatalf("first header = %+v", first)
	}
	if len(first.Entities) != 1 {
		t.Fatalf("first has %d entities, want 1", len(first.Entities))
	}
	want := tempo.Vector(tempo.Vec3{X: 1, Y: 2})
	if v := first.Entities[newCrate]["transform"]; !v.Equal(want) {
		t.Fatalf("crate transform = %v, want %v", v, want)
	}
	if v := got[1].Entities[newCrate]["playhead"]; !v.Equal(tempo.Number(1.25)) {
		t.Fatalf("crate playhead = %v", v)
	}
}

func TestDecodeSnapshotsRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshots([]byte(`{"not":"a list"}`), func(string) (tempo.EntityID, bool) { return 0, false }); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEncodeEmptyTimeline(t *testing.T) {
	raw, err := EncodeSnapshots(nil, func(tempo.EntityID) (string, bool) { return "", false })
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Fatalf("raw = %s, want []", raw)
	}
}

func TestDecodeNamedKeepsNames(t *testing.T) {
	raw := []byte(`[{"t":1.5,"scale":0.5,"energy":40,"entities":{"body/crate":{"visible":{"kind":3,"bool":true}}}}]`)
	rows, err := DecodeNamed(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].T != 1.5 || rows[0].Scale != 0.5 {
		t.Fatalf("rows = %+v", rows)
	}
	v, ok := rows[0].Entities["body/crate"]["visible"]
	if !ok || v.Kind != tempo.KindFlag || !v.Bool {
		t.Fatalf("visible = %+v, %v", v, ok)
	}
}
