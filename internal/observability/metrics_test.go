package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/engine"
	"github.com/timeweave/engine/internal/tempo"
)

func TestObserveSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTempoCollector(reg)
	if err != nil {
		t.Fatalf("NewTempoCollector: %v", err)
	}

	c.Observe(engine.Status{
		Scale:        0.5,
		Energy:       42,
		TimelineLen:  7,
		TimelineSpan: 0.6,
		Bubbles:      2,
		Entities:     3,
		Rewinding:    true,
	}, 2*time.Millisecond)

	checks := map[string]struct {
		got  float64
		want float64
	}{
		"tempo_scale":                 {testutil.ToFloat64(c.Scale), 0.5},
		"tempo_energy":                {testutil.ToFloat64(c.Energy), 42},
		"tempo_timeline_snapshots":    {testutil.ToFloat64(c.TimelineLen), 7},
		"tempo_timeline_span_seconds": {testutil.ToFloat64(c.TimelineSpan), 0.6},
		"tempo_bubbles":               {testutil.ToFloat64(c.Bubbles), 2},
		"tempo_entities":              {testutil.ToFloat64(c.Entities), 3},
		"tempo_rewinding":             {testutil.ToFloat64(c.Rewinding), 1},
	}
	for name, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %v, want %v", name, ch.got, ch.want)
		}
	}
}

func TestEventCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTempoCollector(reg)
	if err != nil {
		t.Fatalf("NewTempoCollector: %v", err)
	}
	bus := event.NewBus()
	c.Subscribe(bus)

	event.Emit(bus, event.RewindEnded{Reason: tempo.RewindStopped})
	event.Emit(bus, event.RewindEnded{Reason: tempo.RewindStopped})
	event.Emit(bus, event.EnergyDepleted{At: 1})
	event.Emit(bus, event.BubbleCreated{ID: 1, Radius: 2, Scale: 0})
	bus.SwapBuffers()
	bus.DispatchAll()

	if got := testutil.ToFloat64(c.Rewinds.WithLabelValues("stopped")); got != 2 {
		t.Fatalf("tempo_rewinds_total{reason=stopped} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Depletions); got != 1 {
		t.Fatalf("tempo_energy_depletions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.BubblesCreated); got != 1 {
		t.Fatalf("tempo_bubbles_created_total = %v, want 1", got)
	}
}

func TestCollectorReuseOnSecondRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewTempoCollector(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewTempoCollector(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	second.Scale.Set(3)
	if got := testutil.ToFloat64(first.Scale); got != 3 {
		t.Fatalf("collectors not shared: first scale = %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTempoCollector(reg)
	if err != nil {
		t.Fatalf("NewTempoCollector: %v", err)
	}
	c.Observe(engine.Status{Scale: 1}, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "tempo_scale 1") {
		t.Fatalf("metrics output missing tempo_scale:\n%s", body)
	}
}
